package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// AuthConfig protects state-changing admin endpoints with a shared token.
type AuthConfig struct {
	// Token is the expected token. An empty token disables the check.
	Token string
	// HeaderName is checked before the Authorization header.
	HeaderName string
}

// DefaultAuthConfig returns default authentication configuration.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		HeaderName: "X-Admin-Token",
	}
}

// Auth rejects non-read requests that do not carry the configured token.
// GET, HEAD and OPTIONS requests are always allowed.
func Auth(config AuthConfig, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Token == "" || isReadOnly(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r, config)
			if subtle.ConstantTimeCompare([]byte(token), []byte(config.Token)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("token_provided", token != "").
					Msg("Authentication failed")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"data":null,"error":{"code":"UNAUTHORIZED","message":"Invalid or missing admin token","details":"Provide the token in the ` + config.HeaderName + ` header"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// extractToken reads the custom header, then "Authorization: Bearer".
func extractToken(r *http.Request, config AuthConfig) string {
	if config.HeaderName != "" {
		if token := r.Header.Get(config.HeaderName); token != "" {
			return token
		}
	}
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}
