package http

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/grindstone-bot/grindstone/pkg/logger"
)

// requireAdmin guards administrative endpoints with a bearer token verified
// against the bcrypt hash in the server configuration.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminTokenHash == "" {
			writeJSONError(w, http.StatusForbidden, "admin_disabled", "Administrative endpoints are not configured")
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authorization bearer token required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminTokenHash), []byte(token)); err != nil {
			s.logger.Warn("admin auth rejected",
				logger.String("ip", getClientIP(r)),
				logger.String("path", r.URL.Path),
			)
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Invalid bearer token")
			return
		}

		next(w, r)
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
