// Package middleware holds HTTP middleware shared by the service routers.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"
)

// SecurityHeadersMiddleware sets standard security headers on every
// response.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuthMiddleware guards the operator endpoints with a shared API key
// carried in the X-Admin-Key header. The comparison is constant-time.
func AdminAuthMiddleware(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				logger.Error().Msg("Admin API key is not configured, rejecting request")
				http.Error(w, "Admin API is not configured", http.StatusServiceUnavailable)
				return
			}

			provided := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote", r.RemoteAddr).
					Msg("Rejected admin request with invalid API key")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
