// Package middleware carries the session authentication layer of the HTTP API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sessiondomain "sso-portal/backend/internal/session/domain"
	sessionservice "sso-portal/backend/internal/session/service"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionFromContext returns the authenticated session, or nil outside the
// middleware.
func SessionFromContext(ctx context.Context) *sessiondomain.Session {
	s, _ := ctx.Value(sessionKey).(*sessiondomain.Session)
	return s
}

// SessionAuth validates the bearer token on every request and stores the
// session in the request context. Expired sessions get a distinct message so
// clients can prompt a fresh login instead of treating the token as bogus.
func SessionAuth(sessions *sessionservice.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			s, err := sessions.ValidateSession(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, sessionservice.ErrSessionExpired):
					http.Error(w, "session expired", http.StatusUnauthorized)
				case errors.Is(err, sessionservice.ErrSessionNotFound), errors.Is(err, sessionservice.ErrInvalidInput):
					http.Error(w, "invalid session", http.StatusUnauthorized)
				default:
					http.Error(w, "session validation failed", http.StatusInternalServerError)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, s)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
