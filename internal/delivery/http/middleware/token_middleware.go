package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"shipwise-backend/pkg/utils"
)

// SharedTokenMiddleware admits requests carrying the configured secret in the
// given header, either raw or as "Bearer <token>". An empty token rejects
// every request.
func SharedTokenMiddleware(header, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get(header), "Bearer "))
			if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
