package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        string    `json:"-"` // "-" means do not include in JSON output
	AuthProvider    string    `json:"auth_provider"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`         // Access Token
	RefreshToken string    `json:"refresh_token"` // Refresh Token
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"` // Expiry of the refresh token or session
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user into the database.
func (u *User) CreateUser(db *sql.DB) error {
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	query := `
	INSERT INTO users (username, password, email, auth_provider, is_email_verified)
	VALUES (?, ?, ?, ?, ?)`

	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Username, u.Password, u.Email, u.AuthProvider, u.IsEmailVerified)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.AuthProvider, &user.IsEmailVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}

const userSelectColumns = `id, username, password, email, auth_provider, is_email_verified`

// GetUserByUsername retrieves a user from the database by their username.
func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	row := db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetUserByEmail retrieves a user from the database by their email address.
func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	row := db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID retrieves a user from the database by their primary key.
func GetUserByID(db *sql.DB, id int64) (*User, error) {
	row := db.QueryRow(`SELECT `+userSelectColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// SetEmailVerificationToken stores a fresh verification token for the user.
func SetEmailVerificationToken(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	_, err := db.Exec(`UPDATE users SET email_verification_token = ?, email_verification_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expiresAt, userID)
	return err
}

// VerifyEmailByToken marks the matching user as verified and clears the token.
// Returns an error when the token is unknown or expired.
func VerifyEmailByToken(db *sql.DB, token string) error {
	res, err := db.Exec(`UPDATE users SET is_email_verified = TRUE, email_verification_token = NULL, email_verification_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`, token, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("verification token invalid or expired")
	}
	return nil
}

// SetPasswordResetToken stores a password-reset token for the user.
func SetPasswordResetToken(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	_, err := db.Exec(`UPDATE users SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expiresAt, userID)
	return err
}

// ResetPasswordByToken replaces the password of the user holding a live reset
// token and clears the token.
func ResetPasswordByToken(db *sql.DB, token, hashedPassword string) error {
	res, err := db.Exec(`UPDATE users SET password = ?, password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`, hashedPassword, token, time.Now())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("password reset token invalid or expired")
	}
	return nil
}

// CreateSession inserts a new session into the database.
func CreateSession(db *sql.DB, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

const sessionSelectColumns = `id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at`

func scanSession(row *sql.Row) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found, expired, or blocked")
		}
		return nil, err
	}
	return &session, nil
}

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionSelectColumns+` FROM sessions WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`, token, time.Now())
	return scanSession(row)
}

// GetSessionByRefreshToken retrieves an active session by its refresh token.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionSelectColumns+` FROM sessions WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`, refreshToken, time.Now())
	return scanSession(row)
}

// UpdateSessionToken swaps the access token on an existing session.
func UpdateSessionToken(db *sql.DB, sessionID int64, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

// DeleteSessionByToken removes a session from the database based on the access token.
func DeleteSessionByToken(db *sql.DB, token string) error {
	query := `DELETE FROM sessions WHERE token = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	// The session might have already expired or been deleted; zero rows
	// affected is not an error for logout.
	_, err = stmt.Exec(token)
	return err
}
