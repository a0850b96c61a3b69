package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dealdesk/internal/authz"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/requestcontext"
)

// WithActor adds the caller identity to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithActor(req *http.Request, actor id.ActorID, roles ...string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor, roles...))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}

// Bearer issues a token for actor and sets it on req.
func Bearer(t *testing.T, tokens *authz.TokenService, req *http.Request, actor id.ActorID, roles ...authz.Role) *http.Request {
	t.Helper()
	token, err := tokens.Issue(actor, roles, time.Now(), time.Hour)
	require.NoError(t, err, "failed to issue token")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// ActorContext returns a background context carrying actor and a fixed time.
func ActorContext(actor id.ActorID, at time.Time, roles ...string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor, roles...)
	return requestcontext.WithTime(ctx, at)
}
