package middleware

import (
	"net/http"

	"shipwise-backend/pkg/utils"
)

// AdminMiddleware admits callers with the admin role. It must run after
// AuthMiddleware.
func AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !user.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Forbidden: admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
