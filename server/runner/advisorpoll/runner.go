// Package advisorpoll polls the chat platform for new messages, mainly
// advisor replies inside escalation threads, and feeds them through the same
// orchestrator entry point as the HTTP path.
package advisorpoll

import (
	"context"
	"log/slog"
	"time"

	"github.com/campushq/advisor/server/service/advisor"
)

const defaultInterval = 5 * time.Second

// Fetcher pulls messages that arrived since the previous call.
type Fetcher interface {
	FetchNewMessages(ctx context.Context) ([]advisor.InboundMessage, error)
}

// Handler is the message-ingestion entry point shared with the HTTP layer.
type Handler interface {
	Handle(ctx context.Context, msg *advisor.InboundMessage) *advisor.Result
}

type Runner struct {
	fetcher  Fetcher
	handler  Handler
	interval time.Duration
}

// NewRunner creates a chat-platform poller.
func NewRunner(fetcher Fetcher, handler Handler, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{
		fetcher:  fetcher,
		handler:  handler,
		interval: interval,
	}
}

// Run starts the poll loop. Blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.poll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.poll(ctx)
		case <-ctx.Done():
			slog.Info("advisor poll runner stopped")
			return
		}
	}
}

// RunOnce polls a single time (for manual trigger and tests).
func (r *Runner) RunOnce(ctx context.Context) {
	r.poll(ctx)
}

func (r *Runner) poll(ctx context.Context) {
	messages, err := r.fetcher.FetchNewMessages(ctx)
	if err != nil {
		// Transient platform failure; the next tick retries from the same cursor.
		slog.Warn("failed to fetch new messages", "error", err)
		return
	}

	for i := range messages {
		select {
		case <-ctx.Done():
			slog.Info("poll processing cancelled", "processed", i, "total", len(messages))
			return
		default:
		}

		msg := &messages[i]
		result := r.handler.Handle(ctx, msg)
		if result.Kind == advisor.ResultFailed {
			slog.Warn("polled message handling failed",
				"user_id", msg.UserID,
				"thread_id", msg.ThreadID,
				"text", result.Text)
		}
	}
}
