package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campushq/advisor/server/internal/observability"
	"github.com/campushq/advisor/server/service/advisor"
)

// QueryResponse is the outbound envelope for the query endpoint.
type QueryResponse struct {
	Status             string   `json:"status,omitempty"`
	Text               string   `json:"text,omitempty"`
	ThreadID           string   `json:"thread_id,omitempty"`
	SuggestedQuestions []string `json:"suggested_questions,omitempty"`
}

// HandleQuery runs one inbound message through the pipeline.
// POST /query, POST /api/v1/query
func (s *APIV1Service) HandleQuery(c echo.Context) error {
	var msg advisor.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}
	if msg.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	if !s.rateLimiter.Allow(msg.UserID) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	}

	reqCtx := observability.NewRequestContext(slog.Default(), msg.UserID)
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	result := s.Handler.Handle(ctx, &msg)

	outcome := string(result.Kind)
	if result.FromFAQ {
		outcome = "faq_hit"
	}
	s.metrics.RecordRequest(outcome)
	s.metrics.RecordDuration(reqCtx.Duration())
	if result.Kind == advisor.ResultFailed {
		s.metrics.RecordFailure()
	}

	reqCtx.Info("query handled",
		slog.String(observability.LogFieldOutcome, outcome),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		slog.String(observability.LogFieldThreadID, result.ThreadID))

	switch result.Kind {
	case advisor.ResultIgnored:
		return c.JSON(http.StatusOK, QueryResponse{Status: "ignored"})
	case advisor.ResultRelayed:
		return c.JSON(http.StatusOK, QueryResponse{Status: "relayed", ThreadID: result.ThreadID})
	case advisor.ResultFailed:
		return c.JSON(http.StatusServiceUnavailable, QueryResponse{Status: "failed", Text: result.Text})
	default:
		return c.JSON(http.StatusOK, QueryResponse{
			Status:             string(result.Kind),
			Text:               result.Text,
			ThreadID:           result.ThreadID,
			SuggestedQuestions: result.SuggestedQuestions,
		})
	}
}
