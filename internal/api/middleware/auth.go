package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/reglens/reglens/internal/api"
)

type contextKey string

// ServiceKeyAuth guards routes with a single static API key, accepted as
// a Bearer token or in the X-API-Key header. An empty configured key
// disables authentication.
func ServiceKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("X-API-Key")
			if token == "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					api.Error(w, http.StatusUnauthorized, "missing authorization header")
					return
				}
				if !strings.HasPrefix(authHeader, "Bearer ") {
					api.Error(w, http.StatusUnauthorized, "invalid authorization format")
					return
				}
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
