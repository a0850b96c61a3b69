package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"dealdesk/internal/authz"
	"dealdesk/internal/platform/middleware"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
	"dealdesk/pkg/testutil"
)

type echoHandler struct{}

func (echoHandler) Register(r chi.Router) {
	r.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{
			"actor": requestcontext.ActorID(r.Context()).String(),
			"nonce": uuid.NewString(),
		})
	})
}

func TestRouter(t *testing.T) {
	tokens := authz.NewTokenService("router-test-key", "dealdesk")
	router := NewRouter(Config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verifier:       tokens,
		Idempotency:    middleware.NewMemoryIdempotencyStore(),
		IdempotencyTTL: time.Hour,
		Health: map[string]HealthCheck{
			"ledger": func(context.Context) error { return nil },
		},
		Handlers: []Registrar{echoHandler{}},
	})
	actor := id.ActorID(uuid.New())

	t.Run("healthz is public", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("metrics is public", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("api requires a token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/echo", map[string]string{}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("authenticated caller reaches the handler", func(t *testing.T) {
		req := testutil.Bearer(t, tokens, testutil.NewJSONRequest(t, http.MethodPost, "/echo", map[string]string{}), actor)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, actor.String(), (*body)["actor"])
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("idempotency key replays", func(t *testing.T) {
		send := func() map[string]string {
			req := testutil.Bearer(t, tokens, testutil.NewJSONRequest(t, http.MethodPost, "/echo", map[string]string{}), actor)
			req.Header.Set("Idempotency-Key", "retry-1")
			rr := testutil.DoRequest(router, req)
			testutil.AssertStatus(t, rr, http.StatusCreated)
			return *testutil.UnmarshalResponse[map[string]string](t, rr)
		}
		assert.Equal(t, send()["nonce"], send()["nonce"])
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/nowhere", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestHealthzDegraded(t *testing.T) {
	router := NewRouter(Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Verifier: authz.NewTokenService("k", "dealdesk"),
		Health: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		},
	})
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	assert.Contains(t, rr.Body.String(), "connection refused")
}
