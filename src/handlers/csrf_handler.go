package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/spendfolio/backend/src/logger"
)

const csrfCookieName = "_spendfolio_csrf"

// GetCSRFToken issues a double-submit CSRF token: the same value goes into an
// HttpOnly cookie and the response body/header.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := generateRandomToken()

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		MaxAge:   3600,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-CSRF-Token", token)
	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}

func generateRandomToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		// If we can't generate random bytes, use a timestamp-based fallback.
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.StdEncoding.EncodeToString(b)
}

// CSRFMiddleware validates the double-submit token on mutating requests. The
// authKey is validated for length at startup; the comparison itself is the
// header-vs-cookie match.
func CSRFMiddleware(authKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight and plain reads need no CSRF proof.
			if r.Method == http.MethodOptions || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, err := r.Cookie(csrfCookieName)

			if headerToken != "" && err == nil && headerToken == cookie.Value {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF token validation failed",
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"hasHeaderToken", headerToken != "",
				"cookieErr", err)
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
