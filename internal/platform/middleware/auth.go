package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"dealdesk/internal/authz"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(tokenString string) (authz.Principal, error)
}

// RequireAuth verifies the bearer token and stores the principal for
// authz.FromContext. Requests without a valid token never reach handlers.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			principal, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			roles := make([]string, 0, len(principal.Roles))
			for _, role := range principal.Roles {
				roles = append(roles, string(role))
			}
			ctx = requestcontext.WithActor(ctx, principal.ActorID, roles...)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
