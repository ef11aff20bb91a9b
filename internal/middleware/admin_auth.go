package middleware

import (
	"encoding/json"
	"net/http"

	"aroma-order-service/internal/auth"
)

const adminRealm = `Basic realm="aroma admin"`

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// AdminAuth guards the admin surface with HTTP basic auth. The configured
// password may be plain text or a bcrypt hash.
func AdminAuth(user, pass string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, ok := r.BasicAuth()
			if !ok || !auth.CheckAdminCredentials(user, pass, gotUser, gotPass) {
				w.Header().Set("WWW-Authenticate", adminRealm)
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
