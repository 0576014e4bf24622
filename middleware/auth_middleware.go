// backend/middleware/auth_middleware.go
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"chat-team/backend/models"
	"chat-team/backend/utils"
)

// JWTMiddleware 驗證 JWT Token 並將使用者 ID 放入 context
func JWTMiddleware(jwtSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(logger, w, r, models.ErrUnauthorized)
				return
			}

			// Authorization: Bearer <token>
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(logger, w, r, models.ErrUnauthorized)
				return
			}

			userID, err := utils.GetUserIDFromToken(parts[1], jwtSecret)
			if err != nil {
				logger.Info("Invalid JWT token", "error", err)
				writeError(logger, w, r, models.ErrUnauthorized)
				return
			}

			// 將使用者 ID 存儲到請求的 context 中
			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), userID)))
		})
	}
}
