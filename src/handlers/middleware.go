package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/spendfolio/backend/src/database"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/model"
	"github.com/username/spendfolio/backend/src/utils"
)

// Unexported context key type to avoid collisions.
type contextKey string

const userIDContextKey contextKey = "userID"

// GetUserIDFromContext extracts the authenticated user ID placed by
// AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

func (h *UserHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.L.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			logger.L.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		userIDStr, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			logger.L.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		userIDInt, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			logger.L.Error("AuthMiddleware: Invalid user ID format in token", "userIDStr", userIDStr, "error", err)
			utils.SendJSONError(w, "Invalid user ID in token", http.StatusInternalServerError)
			return
		}

		if _, err := model.GetSessionByToken(database.DB, tokenString); err != nil {
			// OAuth logins carry no local session; only local accounts require one.
			user, userErr := model.GetUserByID(database.DB, userIDInt)
			if userErr != nil {
				logger.L.Warn("AuthMiddleware: User not found for token after session check failed", "userID", userIDStr, "error", userErr)
				utils.SendJSONError(w, "Invalid session or user", http.StatusUnauthorized)
				return
			}
			if user.AuthProvider == "local" {
				logger.L.Warn("AuthMiddleware: Session validation failed for local user's access token", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired session", http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userIDInt)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
