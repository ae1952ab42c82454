package auth

import (
	"net/http"
	"strings"

	"autotrader/src/security"

	logger "github.com/sirupsen/logrus"
)

// TokenFromRequest reads "Authorization: Bearer <token>" or X-Admin-Token.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}

// RequireAdmin guards control endpoints with the bcrypt-hashed operator
// token. An empty hash disables the check.
func RequireAdmin(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash == "" {
				next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context())))
				return
			}
			if !security.CheckToken(hash, TokenFromRequest(r)) {
				logger.WithFields(map[string]interface{}{
					"path":   r.URL.Path,
					"remote": r.RemoteAddr,
				}).Warn("rejected control request with invalid admin token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context())))
		})
	}
}
