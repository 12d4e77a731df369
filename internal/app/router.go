package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/fedauth/pkg/httpserver"
	"github.com/dmitrymomot/fedauth/pkg/logger"
	"github.com/dmitrymomot/fedauth/pkg/metrics"
)

// Handler returns the service router. Probes and metrics bypass the session
// middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(a.logger, a.cfg.ReadinessTimeout, a.checks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(a.registry))

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.Middleware)
		a.auth.Routes(r)
	})
	return r
}

// NewLogger builds the service logger. Records logged with a request context
// carry its request id.
func NewLogger(cfg logger.Config, opts ...logger.Option) *slog.Logger {
	return logger.New(append([]logger.Option{
		logger.WithConfig(cfg),
		logger.WithContextExtractors(requestIDAttr),
	}, opts...)...)
}

func requestIDAttr(ctx context.Context) (slog.Attr, bool) {
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.RequestID(id), true
	}
	return slog.Attr{}, false
}
