package middleware

import (
	"context"
	"net/http"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/utils"
)

// AuthMiddleware validates the bearer token (or accessToken cookie) and puts
// the caller into the request context. Claims are trusted as issued; there is
// no per-request user lookup.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := utils.ExtractClaims(r)
		if err != nil || claims.UserID == "" {
			utils.WriteError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		user := &domain.User{
			ID:    claims.UserID,
			Email: claims.Email,
			Role:  claims.Role,
		}

		reqLogger := logger.WithUserID(*logger.WithContext(r.Context()), user.ID)
		ctx := context.WithValue(r.Context(), domain.UserContextKey, user)
		ctx = logger.NewContext(ctx, &reqLogger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the caller set by AuthMiddleware.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(domain.UserContextKey).(*domain.User)
	return user, ok && user != nil
}
