package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/logging"
)

// Authenticator resolves a bearer token to the calling principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (access.Principal, error)
}

// Authenticate attaches the caller's principal to the request context when an
// Authorization header is present. Requests without the header pass through
// anonymously; a header carrying an invalid or expired token is rejected.
func Authenticate(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := access.BearerToken(r.Header.Get("Authorization"))
			if !present || authn == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principal, err := authn.Authenticate(ctx, token)
			if err != nil {
				if errors.Is(err, access.ErrUnauthorized) {
					logging.FromContext(ctx).Warn("rejected session token")
					writeFailure(w, http.StatusUnauthorized, "Session is invalid or expired, please sign in again")
					return
				}
				logging.FromContext(ctx).Error("authenticate request", "error", err)
				writeFailure(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx = access.WithPrincipal(ctx, principal)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(slog.String("user_id", principal.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that reach it without a principal.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if access.FromContext(r.Context()) == nil {
			writeFailure(w, http.StatusUnauthorized, "Please sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
