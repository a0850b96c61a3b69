// Package httpapi assembles the public router: ops endpoints in the clear,
// everything else behind the authenticated middleware chain.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/platform/metrics"
	"dealdesk/internal/platform/middleware"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/httputil"
)

const defaultRequestTimeout = 30 * time.Second

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Verifier       middleware.TokenVerifier
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
	Handlers       []Registrar
}

func NewRouter(cfg Config) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Get("/healthz", healthz(cfg.Health))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireAuth(cfg.Verifier, cfg.Logger))
		if cfg.Idempotency != nil {
			api.Use(middleware.Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, cfg.Metrics, cfg.Logger))
		}
		for _, h := range cfg.Handlers {
			h.Register(api)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
