package middleware

import (
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	"github.com/MrJamesThe3rd/tally/internal/session"
)

// RequireSession rejects requests without a valid bearer session token.
// It is a no-op when the PIN lock is disabled.
func RequireSession(lock *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lock.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				respond.Message(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			if err := lock.Verify(strings.TrimSpace(authz[len("Bearer "):])); err != nil {
				respond.Message(w, http.StatusUnauthorized, "session locked")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
