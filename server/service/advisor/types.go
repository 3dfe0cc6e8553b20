// Package advisor implements the escalation and FAQ-resolution pipeline:
// the decision logic that answers a student question from the cached FAQ
// bank, from retrieval-augmented generation over the handbook, or by
// escalating to a human advisor over a bidirectional message-thread relay.
package advisor

import (
	"context"
	"time"
)

// InboundMessage is the normalized envelope for one incoming message,
// whether it arrived over HTTP or from the platform poller.
type InboundMessage struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Bot         bool   `json:"bot"`
	ThreadID    string `json:"thread_id,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
}

// ResultKind classifies the outcome of handling one message.
type ResultKind string

const (
	// ResultAnswered means the question was answered, from the FAQ bank or
	// from generation with sufficient confidence.
	ResultAnswered ResultKind = "answered"
	// ResultEscalated means the question was forwarded to the human advisor.
	ResultEscalated ResultKind = "escalated"
	// ResultRelayed means the message was a reply inside an existing
	// escalation thread and has been forwarded.
	ResultRelayed ResultKind = "relayed"
	// ResultIgnored means the message was bot-originated or empty.
	ResultIgnored ResultKind = "ignored"
	// ResultFailed means handling failed and the student should retry.
	ResultFailed ResultKind = "failed"
)

// Result is the uniform outcome consumed by every caller.
type Result struct {
	Kind               ResultKind `json:"kind"`
	Text               string     `json:"text"`
	ThreadID           string     `json:"thread_id,omitempty"`
	SuggestedQuestions []string   `json:"suggested_questions,omitempty"`
	// FromFAQ reports whether the answer came from the FAQ bank.
	FromFAQ bool `json:"from_faq,omitempty"`
}

// RAGMatch is one ranked context snippet from a generation call.
type RAGMatch struct {
	Snippet string
	Score   float32
}

// RAGResult is the transient value returned per generation call.
type RAGResult struct {
	Text    string
	Matches []RAGMatch
}

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	System        string
	Query         string
	RecentContext string
}

// Generator is the external text-generation collaborator. Implementations
// must respect context cancellation and bound their own timeouts.
type Generator interface {
	Generate(ctx context.Context, opts *GenerateOptions) (*RAGResult, error)
}

// Messenger is the external chat-platform collaborator used to reach the
// human advisor and to deliver relayed replies.
type Messenger interface {
	// PostMessage sends text to a destination user. A non-empty
	// replyToThread appends to that thread. Returns the thread id.
	PostMessage(ctx context.Context, destination, text, replyToThread string) (string, error)
}

// Message is one entry in a session's conversation history.
type Message struct {
	Sender    string
	Text      string
	CreatedAt time.Time
}

// FAQEntry is one cached question with its canonical answer.
type FAQEntry struct {
	ID                 int32
	Question           string
	Answer             string
	SuggestedQuestions []string
}
