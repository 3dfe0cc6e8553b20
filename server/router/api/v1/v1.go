// Package v1 exposes the HTTP surface of the advisor backend: the query
// endpoint, a health route, and a metrics overview.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/campushq/advisor/internal/profile"
	"github.com/campushq/advisor/server/internal/observability"
	"github.com/campushq/advisor/server/middleware"
	"github.com/campushq/advisor/server/service/advisor"
)

// QueryHandler is the message-ingestion entry point, implemented by the
// orchestrator.
type QueryHandler interface {
	Handle(ctx context.Context, msg *advisor.InboundMessage) *advisor.Result
}

type APIV1Service struct {
	Profile *profile.Profile
	Handler QueryHandler

	rateLimiter *middleware.RateLimiter
	metrics     *observability.Metrics
}

// NewAPIV1Service wires the HTTP layer over the orchestrator.
func NewAPIV1Service(profile *profile.Profile, handler QueryHandler) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		Handler:     handler,
		rateLimiter: middleware.NewRateLimiter(profile.RateLimitRPS, profile.RateLimitBurst),
		metrics:     observability.GlobalMetrics(),
	}
}

// Register attaches all routes to the given echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.Use(echomiddleware.Recover())

	e.GET("/", s.GetHealth)
	e.POST("/query", s.HandleQuery)

	apiV1 := e.Group("/api/v1")
	apiV1.POST("/query", s.HandleQuery)
	apiV1.GET("/metrics", s.GetMetrics)
}

// HealthResponse is the payload of the health route.
type HealthResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

// GetHealth reports that the advisor is up.
// GET /
func (s *APIV1Service) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Message: "Handbook advisor is running",
		Version: s.Profile.Version,
		Mode:    s.Profile.Mode,
	})
}

// GetMetrics returns pipeline counters.
// GET /api/v1/metrics
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}
