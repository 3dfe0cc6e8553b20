package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

// Direction flags which way a thread link points.
type Direction string

const (
	// DirectionToAdvisor marks the student-side thread: replies arriving on
	// it are forwarded to the human advisor.
	DirectionToAdvisor Direction = "to_advisor"
	// DirectionToStudent marks the advisor-side thread: replies arriving on
	// it are forwarded back to the student.
	DirectionToStudent Direction = "to_student"
)

// ThreadLink maps one thread id to its counterpart on the other side of an
// escalation. Two links are created atomically per escalation so a reply on
// either side can be routed without re-deriving context.
type ThreadLink struct {
	ThreadID    string
	Counterpart string
	Direction   Direction
	// Destination is the student username, set only on to_student links.
	Destination string
	// QuestionID ties the link pair to the escalated pending question.
	QuestionID string
	CreatedAt  time.Time
}

// ThreadLinkTable stores thread links. Implementations must be safe for
// concurrent use.
type ThreadLinkTable interface {
	// CreatePair atomically records both directions of an escalation.
	CreatePair(origin, advisorThread, studentUser, questionID string) error
	// Lookup resolves a thread id to its link.
	Lookup(threadID string) (ThreadLink, bool)
	// SweepIdle removes link pairs created before the cutoff. Returns the
	// number of links removed.
	SweepIdle(cutoff time.Time) int
}

// InMemoryThreadLinkTable is the in-process ThreadLinkTable.
type InMemoryThreadLinkTable struct {
	mu    sync.RWMutex
	links map[string]ThreadLink

	now func() time.Time
}

// NewInMemoryThreadLinkTable creates an empty link table.
func NewInMemoryThreadLinkTable() *InMemoryThreadLinkTable {
	return &InMemoryThreadLinkTable{
		links: make(map[string]ThreadLink),
		now:   time.Now,
	}
}

var _ ThreadLinkTable = (*InMemoryThreadLinkTable)(nil)

func (t *InMemoryThreadLinkTable) CreatePair(origin, advisorThread, studentUser, questionID string) error {
	if origin == "" || advisorThread == "" {
		return advisorerrors.InvalidArgument("thread link requires both thread ids")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.links[origin]; exists {
		return advisorerrors.InvalidArgument(fmt.Sprintf("thread %s already linked", origin))
	}
	if _, exists := t.links[advisorThread]; exists {
		return advisorerrors.InvalidArgument(fmt.Sprintf("thread %s already linked", advisorThread))
	}

	now := t.now()
	t.links[origin] = ThreadLink{
		ThreadID:    origin,
		Counterpart: advisorThread,
		Direction:   DirectionToAdvisor,
		QuestionID:  questionID,
		CreatedAt:   now,
	}
	t.links[advisorThread] = ThreadLink{
		ThreadID:    advisorThread,
		Counterpart: origin,
		Direction:   DirectionToStudent,
		Destination: studentUser,
		QuestionID:  questionID,
		CreatedAt:   now,
	}
	return nil
}

func (t *InMemoryThreadLinkTable) Lookup(threadID string) (ThreadLink, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	link, ok := t.links[threadID]
	return link, ok
}

func (t *InMemoryThreadLinkTable) SweepIdle(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for threadID, link := range t.links {
		if link.CreatedAt.Before(cutoff) {
			delete(t.links, threadID)
			removed++
		}
	}
	return removed
}

// answerTagPattern extracts the question id tag the advisor is asked to keep
// in replies, e.g. "[Q:V9gwXkzB] The prerequisite is CS15."
var answerTagPattern = regexp.MustCompile(`\[Q:([A-Za-z0-9_-]+)\]`)

// ParseAnswerTag extracts a question id tag from an advisor reply.
// Returns "" when the reply carries no parseable tag.
func ParseAnswerTag(text string) string {
	m := answerTagPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripAnswerTag removes the question id tag from an advisor reply before it
// is shown to the student.
func StripAnswerTag(text string) string {
	return strings.TrimSpace(answerTagPattern.ReplaceAllString(text, ""))
}

// Relay forwards messages between a student conversation and the human
// advisor conversation.
type Relay struct {
	links       ThreadLinkTable
	messenger   Messenger
	advisorUser string
}

// NewRelay creates an escalation relay targeting the given advisor identity.
func NewRelay(links ThreadLinkTable, messenger Messenger, advisorUser string) *Relay {
	return &Relay{
		links:       links,
		messenger:   messenger,
		advisorUser: advisorUser,
	}
}

// Escalate forwards a student question to the human advisor and links the
// two threads. Returns the advisor-side thread id. No state is recorded when
// the outbound send fails.
func (r *Relay) Escalate(ctx context.Context, studentUser, displayName, questionID, question, originThreadID string) (string, error) {
	text := fmt.Sprintf("[Q:%s] Question from %s (@%s):\n%s\n\nReply in this thread to answer; keep the [Q:%s] tag.",
		questionID, displayName, studentUser, question, questionID)

	advisorThread, err := r.messenger.PostMessage(ctx, r.advisorUser, text, "")
	if err != nil {
		return "", advisorerrors.Wrap(err, advisorerrors.ErrCodeTransientUpstream, "failed to forward question to advisor")
	}

	if err := r.links.CreatePair(originThreadID, advisorThread, studentUser, questionID); err != nil {
		// The advisor already got the message; an unlinked pair means replies
		// cannot be routed back, so surface it rather than pretending success.
		return "", err
	}

	slog.Info("question escalated to human advisor",
		"question_id", questionID,
		"student", studentUser,
		"advisor_thread", advisorThread)

	return advisorThread, nil
}

// RelayReply forwards a reply arriving on a linked thread to the other side.
// Returns the link used, or an error when the thread id resolves to nothing.
func (r *Relay) RelayReply(ctx context.Context, sourceThreadID, text string) (ThreadLink, error) {
	link, ok := r.links.Lookup(sourceThreadID)
	if !ok {
		return ThreadLink{}, advisorerrors.ThreadNotFound(sourceThreadID)
	}

	var destination string
	switch link.Direction {
	case DirectionToAdvisor:
		destination = r.advisorUser
	case DirectionToStudent:
		destination = link.Destination
	default:
		return ThreadLink{}, advisorerrors.InvalidArgument(
			fmt.Sprintf("thread %s has unknown direction %q", sourceThreadID, link.Direction))
	}

	if _, err := r.messenger.PostMessage(ctx, destination, text, link.Counterpart); err != nil {
		return ThreadLink{}, advisorerrors.Wrap(err, advisorerrors.ErrCodeTransientUpstream, "failed to relay reply")
	}

	return link, nil
}
