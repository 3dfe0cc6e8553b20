package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	advisorerrors "github.com/campushq/advisor/internal/errors"
)

const (
	botSender     = "bot"
	advisorSender = "advisor"

	defaultSystemPrompt = "You are an academic advising assistant for the computer science department. " +
		"Answer strictly from the provided handbook context. " +
		"If the handbook does not cover the question, say you are not sure."

	escalationNotice = "I've forwarded your question to a human advisor. " +
		"You'll get a reply here as soon as they respond."

	retryNotice = "Something went wrong while handling your question. Please try again."

	busyNotice = "I'm handling a lot of questions right now. Please try again in a moment."
)

// OrchestratorConfig carries the injectable tunables.
type OrchestratorConfig struct {
	SystemPrompt   string
	HistoryWindow  int
	RequestTimeout time.Duration
	MaxInflightGen int64
	// ShowUnverified includes the low-confidence generated text, labeled as
	// unverified, alongside the escalation notice.
	ShowUnverified bool
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaultSystemPrompt
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxInflightGen <= 0 {
		c.MaxInflightGen = 8
	}
}

// Orchestrator sequences one inbound message through ignore, relay, FAQ,
// generation, confidence, and escalation. Safe for concurrent use; per-user
// serialization is delegated to the SessionStore.
type Orchestrator struct {
	sessions  SessionStore
	links     ThreadLinkTable
	relay     *Relay
	faq       *FAQMatcher
	estimator *Estimator
	generator Generator

	genSem *semaphore.Weighted
	cfg    OrchestratorConfig

	newQuestionID func() string
}

// NewOrchestrator wires the pipeline. generator may be nil, in which case
// every cache miss escalates.
func NewOrchestrator(
	sessions SessionStore,
	links ThreadLinkTable,
	relay *Relay,
	faq *FAQMatcher,
	estimator *Estimator,
	generator Generator,
	cfg OrchestratorConfig,
) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		sessions:      sessions,
		links:         links,
		relay:         relay,
		faq:           faq,
		estimator:     estimator,
		generator:     generator,
		genSem:        semaphore.NewWeighted(cfg.MaxInflightGen),
		cfg:           cfg,
		newQuestionID: shortuuid.New,
	}
}

// Handle runs the decision sequence for one message and always returns a
// Result; collaborator failures are translated, never propagated raw.
func (o *Orchestrator) Handle(ctx context.Context, msg *InboundMessage) *Result {
	if msg.Bot || strings.TrimSpace(msg.Text) == "" {
		return &Result{Kind: ResultIgnored}
	}

	// A thread id resolving to a link means this message belongs to an
	// existing escalation; relay it without touching the answer pipeline.
	if msg.ThreadID != "" {
		if link, ok := o.links.Lookup(msg.ThreadID); ok {
			return o.handleThreadReply(ctx, msg, link)
		}
	}

	o.sessions.GetOrCreate(msg.UserID, msg.DisplayName)
	o.sessions.RecordMessage(msg.UserID, o.studentSender(msg), msg.Text)

	if entry := o.faq.Match(ctx, msg.Text); entry != nil {
		o.sessions.RecordMessage(msg.UserID, botSender, entry.Answer)
		slog.Info("answered from faq bank",
			"user_id", msg.UserID, "faq_id", entry.ID)
		return &Result{
			Kind:               ResultAnswered,
			Text:               entry.Answer,
			SuggestedQuestions: entry.SuggestedQuestions,
			FromFAQ:            true,
		}
	}

	generated, err := o.generate(ctx, msg)
	if err != nil {
		if advisorerrors.IsCode(err, advisorerrors.ErrCodeOverloaded) {
			slog.Warn("generation concurrency bound hit", "user_id", msg.UserID)
			return &Result{Kind: ResultFailed, Text: busyNotice}
		}
		// Transient generation failure falls back to escalation rather than
		// silence; the advisor sees the question even when the model is down.
		slog.Warn("generation failed, escalating",
			"user_id", msg.UserID, "error", err)
		return o.escalate(ctx, msg, nil)
	}

	estimation := o.estimator.Estimate(msg.Text, generated)
	slog.Debug("confidence estimated",
		"user_id", msg.UserID,
		"answerable", estimation.Answerable,
		"confidence", estimation.Confidence,
		"reason", estimation.Reason)

	if estimation.Answerable {
		o.sessions.RecordMessage(msg.UserID, botSender, generated.Text)
		return &Result{Kind: ResultAnswered, Text: generated.Text}
	}

	return o.escalate(ctx, msg, generated)
}

// handleThreadReply routes a message inside an escalation thread. Advisor
// replies also resolve the pending question before the answer is forwarded.
func (o *Orchestrator) handleThreadReply(ctx context.Context, msg *InboundMessage, link ThreadLink) *Result {
	text := msg.Text
	var answered *PendingQuestion

	if link.Direction == DirectionToStudent {
		questionID := ParseAnswerTag(text)
		if questionID == "" {
			questionID = link.QuestionID
		}
		// Resolve before forwarding so a duplicate advisor reply is reported
		// instead of delivered to the student twice.
		pq, err := o.sessions.ResolvePending(questionID)
		if err != nil {
			slog.Warn("advisor reply references no pending question",
				"question_id", questionID, "thread_id", msg.ThreadID, "error", err)
			return &Result{
				Kind: ResultFailed,
				Text: fmt.Sprintf("Question %s has already been answered or expired.", questionID),
			}
		}
		text = StripAnswerTag(text)
		answered = &pq
	}

	relayed, err := o.relay.RelayReply(ctx, msg.ThreadID, text)
	if err != nil {
		// Put the pending question back so the advisor can retry delivery
		// after a transient send failure.
		if answered != nil {
			if addErr := o.sessions.AddPending(answered.UserID, *answered); addErr != nil {
				slog.Error("failed to restore pending question after relay failure",
					"question_id", answered.QuestionID, "user_id", answered.UserID, "error", addErr)
			}
		}
		slog.Error("relay failed",
			"thread_id", msg.ThreadID,
			"error_code", advisorerrors.GetCodeFromError(err, advisorerrors.ErrCodeTransientUpstream),
			"error", err)
		return &Result{Kind: ResultFailed, Text: retryNotice}
	}

	switch relayed.Direction {
	case DirectionToAdvisor:
		o.sessions.RecordMessage(msg.UserID, o.studentSender(msg), msg.Text)
	case DirectionToStudent:
		o.sessions.RecordMessage(answered.UserID, advisorSender, text)
		slog.Info("advisor answer delivered",
			"question_id", answered.QuestionID, "user_id", answered.UserID)
	}

	return &Result{Kind: ResultRelayed, ThreadID: relayed.Counterpart}
}

// generate invokes the generation collaborator under the concurrency bound
// and the request timeout.
func (o *Orchestrator) generate(ctx context.Context, msg *InboundMessage) (*RAGResult, error) {
	if o.generator == nil {
		return nil, advisorerrors.TransientUpstream("no generator configured", nil)
	}
	if !o.genSem.TryAcquire(1) {
		return nil, advisorerrors.Overloaded("generation concurrency bound reached")
	}
	defer o.genSem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	result, err := o.generator.Generate(ctx, &GenerateOptions{
		System:        o.cfg.SystemPrompt,
		Query:         msg.Text,
		RecentContext: o.sessions.RecentContext(msg.UserID, o.cfg.HistoryWindow),
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, advisorerrors.Timeout("generation timed out")
		}
		return nil, err
	}
	return result, nil
}

// escalate forwards the question to the human advisor. The pending question
// is recorded only after the forward succeeds, so a failed send leaves the
// session unchanged.
func (o *Orchestrator) escalate(ctx context.Context, msg *InboundMessage, generated *RAGResult) *Result {
	questionID := o.newQuestionID()
	origin := o.originThreadID(msg)

	_, err := o.relay.Escalate(ctx, msg.UserID, o.studentSender(msg), questionID, msg.Text, origin)
	if err != nil {
		slog.Error("escalation failed",
			"user_id", msg.UserID, "question_id", questionID, "error", err)
		return &Result{Kind: ResultFailed, Text: retryNotice}
	}

	if err := o.sessions.AddPending(msg.UserID, PendingQuestion{
		QuestionID: questionID,
		Question:   msg.Text,
	}); err != nil {
		slog.Error("failed to record pending question",
			"user_id", msg.UserID, "question_id", questionID, "error", err)
	}

	text := escalationNotice
	if o.cfg.ShowUnverified && generated != nil && generated.Text != "" {
		text += "\n\nIn the meantime, here is an unverified draft answer:\n" + generated.Text
	}
	o.sessions.RecordMessage(msg.UserID, botSender, escalationNotice)

	return &Result{Kind: ResultEscalated, Text: text, ThreadID: origin}
}

// originThreadID picks the student-side thread id for the link pair. HTTP
// messages carry no thread, so the message id (or a fresh id) anchors the
// student side.
func (o *Orchestrator) originThreadID(msg *InboundMessage) string {
	if msg.ThreadID != "" {
		return msg.ThreadID
	}
	if msg.MessageID != "" {
		return msg.MessageID
	}
	return o.newQuestionID()
}

func (o *Orchestrator) studentSender(msg *InboundMessage) string {
	if msg.DisplayName != "" {
		return msg.DisplayName
	}
	return msg.UserID
}
