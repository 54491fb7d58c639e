package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/spendfolio/backend/src/config"
	"github.com/username/spendfolio/backend/src/database"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/model"
	"github.com/username/spendfolio/backend/src/security"
	"github.com/username/spendfolio/backend/src/services"
	"github.com/username/spendfolio/backend/src/utils"
)

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(strings.ToLower(payload.Email))
	if payload.Username == "" || payload.Email == "" || len(payload.Password) < 8 {
		utils.SendJSONError(w, "Username, email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user := &model.User{
		Username:     payload.Username,
		Email:        payload.Email,
		AuthProvider: "local",
	}
	if err := user.HashPassword(payload.Password); err != nil {
		logger.L.Error("Failed to hash password during registration", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Warn("User registration failed", "username", payload.Username, "error", err)
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			utils.SendJSONError(w, "Username or email already in use", http.StatusConflict)
			return
		}
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	verificationToken, err := h.authService.GenerateRandomToken()
	if err == nil {
		expiresAt := time.Now().Add(config.Cfg.VerificationTokenExpiry)
		if err := model.SetEmailVerificationToken(database.DB, user.ID, verificationToken, expiresAt); err != nil {
			logger.L.Error("Failed to store verification token", "userID", user.ID, "error", err)
		} else {
			go func() {
				if mailErr := h.emailService.SendVerificationEmail(user.Email, user.Username, verificationToken); mailErr != nil {
					logger.L.Error("Failed to send verification email", "userID", user.ID, "error", mailErr)
				}
			}()
		}
	}

	logger.L.Info("User registered", "userID", user.ID, "username", user.Username)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Registration successful. Check your email to verify your account.",
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.SendJSONError(w, "Verification token required", http.StatusBadRequest)
		return
	}
	if err := model.VerifyEmailByToken(database.DB, token); err != nil {
		logger.L.Warn("Email verification failed", "error", err)
		utils.SendJSONError(w, "Verification token invalid or expired", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Email verified successfully"})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err != nil {
		logger.L.Warn("Login failed: user lookup", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if err := user.CheckPassword(credentials.Password); err != nil {
		logger.L.Warn("Login failed: password check", "username", credentials.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	userIDStr := fmt.Sprintf("%d", user.ID)
	accessToken, err := h.authService.GenerateToken(userIDStr)
	if err != nil {
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.authService.GenerateRandomToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		IsBlocked:    false,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User logged in", "userID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.RefreshToken == "" {
		utils.SendJSONError(w, "refresh_token required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, payload.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh failed: session lookup", "error", err)
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateSessionToken(database.DB, session.ID, accessToken); err != nil {
		logger.L.Error("Failed to update session token", "sessionID", session.ID, "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"access_token": accessToken})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		logger.L.Error("Failed to delete session on logout", "error", err)
		utils.SendJSONError(w, "Failed to log out", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		utils.SendJSONError(w, "email required", http.StatusBadRequest)
		return
	}

	// Always answer the same way so the endpoint can't be used to probe for
	// registered addresses.
	respond := func() {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "If that address is registered, a reset email has been sent."})
	}

	user, err := model.GetUserByEmail(database.DB, strings.ToLower(strings.TrimSpace(payload.Email)))
	if err != nil {
		logger.L.Debug("Password reset requested for unknown email", "email", payload.Email)
		respond()
		return
	}

	resetToken, err := h.authService.GenerateRandomToken()
	if err != nil {
		logger.L.Error("Failed to generate password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}
	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if err := model.SetPasswordResetToken(database.DB, user.ID, resetToken, expiresAt); err != nil {
		logger.L.Error("Failed to store password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}

	go func() {
		if mailErr := h.emailService.SendPasswordResetEmail(user.Email, user.Username, resetToken); mailErr != nil {
			logger.L.Error("Failed to send password reset email", "userID", user.ID, "error", mailErr)
		}
	}()
	respond()
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Token == "" || len(payload.NewPassword) < 8 {
		utils.SendJSONError(w, "token and a new_password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	hashed, err := h.authService.HashPassword(payload.NewPassword)
	if err != nil {
		logger.L.Error("Failed to hash new password", "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	if err := model.ResetPasswordByToken(database.DB, payload.Token, hashed); err != nil {
		logger.L.Warn("Password reset failed", "error", err)
		utils.SendJSONError(w, "Reset token invalid or expired", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password reset successfully"})
}
