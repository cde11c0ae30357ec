// Package core provides the HTTP chassis for tubepost. It builds a chi router
// that serves both a plain HTTP listener and an AWS Lambda function URL, and
// applies the cross-cutting middleware (recovery, request ids, logging, CORS,
// compression, metrics, authentication) before requests reach handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/config"
)

// MetricsCollector records HTTP request telemetry.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of handler routes onto the router.
type RouteRegistrar func(r chi.Router)

// Server holds the dependencies of the HTTP surface.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Metrics       MetricsCollector
	Authenticator Authenticator
	HealthProbes  []HealthProbe

	// RouteRegistrars are populated by main to avoid an import cycle between
	// core and the handler package.
	RouteRegistrars []RouteRegistrar
	// MetricsHandler serves GET /metrics when non-nil.
	MetricsHandler http.Handler
	// Closers are released on Shutdown in order.
	Closers []func() error

	router *chi.Mux
}

// NewServer validates the required dependencies and prepares an empty router.
// The caller mounts routes with MountRoutes after setting optional fields.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases pooled resources registered in Closers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var firstErr error
	for _, closeFn := range s.Closers {
		if err := closeFn(); err != nil {
			s.Logger.ErrorContext(ctx, "error closing resource", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing resources: %w", err)
			}
		}
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return firstErr
}
