package session

import (
	"net/http"

	"github.com/dmitrymomot/fedauth/pkg/identity"
	"github.com/dmitrymomot/fedauth/pkg/logger"
)

// Middleware loads the session and its user into the request context. The
// request principal is always set: anonymous unless a user was loaded.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, u, err := m.Load(ctx, w, r)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to load session", logger.Error(err))
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		ctx = identity.WithPrincipal(ctx, identity.Anonymous())
		if sess != nil {
			ctx = withSession(ctx, sess)
		}
		if u != nil {
			ctx = identity.WithUser(ctx, u)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a signed-in user with a plain 401. It
// must run after Middleware.
func RequireAuth(next http.Handler) http.Handler {
	return RequireAuthWith(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))(next)
}

// RequireAuthWith is RequireAuth with a caller-supplied rejection, so the
// response matches the rest of the caller's error shape.
func RequireAuthWith(onFail http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !identity.PrincipalFromContext(r.Context()).IsAuthenticated() {
				onFail.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
