// Package api implements the dashboard gateway HTTP surface using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/starford/notedash/internal/apperr"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator reports whether a user session is active.
type Authenticator interface {
	Authenticated() bool
}

// RequireSession rejects requests with 401 while nobody is logged in.
func RequireSession(s Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.Authenticated() {
				writeJSON(w, http.StatusUnauthorized, errorBody(apperr.Message(apperr.ErrUnauthenticated)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
