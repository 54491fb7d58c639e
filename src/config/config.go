package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	JWTSecret          string
	Port               string
	DatabasePath       string
	LogLevel           string
	CSRFAuthKey        []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	MaxUploadSizeBytes int64

	// Attribution engine defaults. The exchange rate converts USD spend into the
	// local display currency (dirhams) when the import request does not carry one.
	DefaultExchangeRate     float64
	ReconciliationTolerance float64

	EmailServiceProvider string

	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	MailgunDomain        string
	MailgunPrivateAPIKey string

	SenderEmail string
	SenderName  string

	VerificationEmailBaseURL string
	VerificationTokenExpiry  time.Duration

	PasswordResetBaseURL     string
	PasswordResetTokenExpiry time.Duration

	// Optional address that receives a warning mail when an import's computed
	// total diverges from the expected total beyond tolerance.
	ReconciliationAlertEmail string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendBaseURL    string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	csrfAuthKeyStr := getEnv("CSRF_AUTH_KEY", "a-very-secure-32-byte-long-key-must-be-32-bytes!")
	if csrfAuthKeyStr == "a-very-secure-32-byte-long-key-must-be-32-bytes!" {
		log.Println("WARNING: Using default insecure CSRF_AUTH_KEY. Set CSRF_AUTH_KEY environment variable for production.")
	}
	if len(csrfAuthKeyStr) < 32 {
		log.Fatalf("FATAL: CSRF_AUTH_KEY must be at least 32 bytes long. Current length: %d", len(csrfAuthKeyStr))
	}

	accessTokenExpiry := getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 60*time.Minute)
	refreshTokenExpiry := getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
	verificationTokenExpiry := getEnvAsDuration("VERIFICATION_TOKEN_EXPIRY", 24*time.Hour)
	passwordResetTokenExpiry := getEnvAsDuration("PASSWORD_RESET_TOKEN_EXPIRY", 1*time.Hour)

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	defaultExchangeRate := getEnvAsFloat("DEFAULT_EXCHANGE_RATE", 10.0)
	if defaultExchangeRate <= 0 {
		log.Printf("WARNING: DEFAULT_EXCHANGE_RATE must be positive, got %f. Using 10.0.", defaultExchangeRate)
		defaultExchangeRate = 10.0
	}
	reconciliationTolerance := getEnvAsFloat("RECONCILIATION_TOLERANCE_PCT", 0.5)
	if reconciliationTolerance < 0 {
		log.Printf("WARNING: RECONCILIATION_TOLERANCE_PCT must not be negative, got %f. Using 0.5.", reconciliationTolerance)
		reconciliationTolerance = 0.5
	}

	Cfg = &AppConfig{
		JWTSecret:          jwtSecret,
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./spendfolio.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CSRFAuthKey:        []byte(csrfAuthKeyStr),
		AccessTokenExpiry:  accessTokenExpiry,
		RefreshTokenExpiry: refreshTokenExpiry,
		MaxUploadSizeBytes: maxUploadSizeBytes,

		DefaultExchangeRate:     defaultExchangeRate,
		ReconciliationTolerance: reconciliationTolerance,

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),

		SMTPServer:   getEnv("SMTP_SERVER", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),

		SenderEmail: getEnv("SENDER_EMAIL", "noreply@example.com"),
		SenderName:  getEnv("SENDER_NAME", "Spendfolio App"),

		VerificationEmailBaseURL: getEnv("VERIFICATION_EMAIL_BASE_URL", "http://localhost:3000/verify-email"),
		VerificationTokenExpiry:  verificationTokenExpiry,

		PasswordResetBaseURL:     getEnv("PASSWORD_RESET_BASE_URL", "http://localhost:3000/reset-password"),
		PasswordResetTokenExpiry: passwordResetTokenExpiry,

		ReconciliationAlertEmail: getEnv("RECONCILIATION_ALERT_EMAIL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		FrontendBaseURL:    getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
	}

	if Cfg.EmailServiceProvider == "mailgun" {
		if Cfg.MailgunDomain == "" {
			log.Fatalf("FATAL: MAILGUN_DOMAIN is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.MailgunPrivateAPIKey == "" {
			log.Fatalf("FATAL: MAILGUN_PRIVATE_API_KEY is required when EMAIL_SERVICE_PROVIDER is 'mailgun', but it's not set in environment or .env file.")
		}
		if Cfg.SenderEmail == "noreply@example.com" || Cfg.SenderEmail == "" {
			log.Fatalf("FATAL: SENDER_EMAIL must be configured properly (e.g., your Mailgun sender) when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, EmailProvider=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.EmailServiceProvider)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Float value for %s not set or empty, using default: %f", key, fallback)
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %f", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
