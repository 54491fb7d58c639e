// backend/src/services/email_service.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/spendfolio/backend/src/config"
	"github.com/username/spendfolio/backend/src/logger"
	"github.com/username/spendfolio/backend/src/models"
)

type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
	// SendReconciliationAlert warns an operator that an import's computed
	// total diverged from the expected total beyond tolerance.
	SendReconciliationAlert(toEmail, batchID string, report models.ReconciliationReport) error
}

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{
				VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
				PasswordResetBaseURL:     config.Cfg.PasswordResetBaseURL,
			}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:                       mg,
			senderEmail:              config.Cfg.SenderEmail,
			senderName:               config.Cfg.SenderName,
			verificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
			passwordResetBaseURL:     config.Cfg.PasswordResetBaseURL,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{
				VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
				PasswordResetBaseURL:     config.Cfg.PasswordResetBaseURL,
			}
		}
		return &SMTPEmailService{
			SMTPServer:               config.Cfg.SMTPServer,
			SMTPPort:                 config.Cfg.SMTPPort,
			SMTPUser:                 config.Cfg.SMTPUser,
			SMTPPassword:             config.Cfg.SMTPPassword,
			SenderEmail:              config.Cfg.SenderEmail,
			VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
			PasswordResetBaseURL:     config.Cfg.PasswordResetBaseURL,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{
			VerificationEmailBaseURL: config.Cfg.VerificationEmailBaseURL,
			PasswordResetBaseURL:     config.Cfg.PasswordResetBaseURL,
		}
	}
}

func reconciliationAlertBody(batchID string, report models.ReconciliationReport) (subject, body string) {
	subject = "Spendfolio import reconciliation warning"
	body = fmt.Sprintf(
		"Import batch %s produced a total of %.2f USD but %.2f USD was expected (mismatch %.2f%%).\n\n%s\n\nThe batch was still written; review the campaign naming for spend that moved into a fallback bucket.",
		batchID, report.CalculatedTotal, report.ExpectedTotal, report.MismatchPct, report.Message)
	return subject, body
}

// --- Mailgun ---

type MailgunEmailService struct {
	mg                       *mailgun.MailgunImpl
	senderEmail              string
	senderName               string
	verificationEmailBaseURL string
	passwordResetBaseURL     string
}

func (s *MailgunEmailService) send(toEmail, subject, body string) error {
	sender := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(sender, subject, body, toEmail)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send email via Mailgun", "to", toEmail, "subject", subject, "error", err)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Email sent via Mailgun", "to", toEmail, "subject", subject, "messageID", id)
	return nil
}

func (s *MailgunEmailService) SendVerificationEmail(toEmail, username, token string) error {
	verificationLink := fmt.Sprintf("%s?token=%s", s.verificationEmailBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nPlease verify your email by clicking this link: %s\n\nThanks,\nThe Spendfolio Team", username, verificationLink)
	return s.send(toEmail, "Verify Your Email Address for Spendfolio", body)
}

func (s *MailgunEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	resetLink := fmt.Sprintf("%s?token=%s", s.passwordResetBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account. Reset it here: %s\n\nIf you did not request this, ignore this email.\n\nThanks,\nThe Spendfolio Team", username, resetLink)
	return s.send(toEmail, "Reset Your Spendfolio Password", body)
}

func (s *MailgunEmailService) SendReconciliationAlert(toEmail, batchID string, report models.ReconciliationReport) error {
	subject, body := reconciliationAlertBody(batchID, report)
	return s.send(toEmail, subject, body)
}

// --- SMTP ---

type SMTPEmailService struct {
	SMTPServer               string
	SMTPPort                 int
	SMTPUser                 string
	SMTPPassword             string
	SenderEmail              string
	VerificationEmailBaseURL string
	PasswordResetBaseURL     string
}

func (s *SMTPEmailService) send(toEmail, subject, body string) error {
	header := map[string]string{
		"From":         s.SenderEmail,
		"To":           toEmail,
		"Subject":      subject,
		"MIME-version": "1.0",
		"Content-Type": "text/plain; charset=\"UTF-8\"",
	}
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, []byte(message)); err != nil {
		logger.L.Error("Failed to send email via SMTP", "to", toEmail, "subject", subject, "error", err)
		return fmt.Errorf("smtp send failed: %w", err)
	}
	logger.L.Info("Email sent via SMTP", "to", toEmail, "subject", subject)
	return nil
}

func (s *SMTPEmailService) SendVerificationEmail(toEmail, username, token string) error {
	verificationLink := fmt.Sprintf("%s?token=%s", s.VerificationEmailBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nPlease verify your email by clicking this link: %s\n\nThanks,\nThe Spendfolio Team", username, verificationLink)
	return s.send(toEmail, "Verify Your Email Address for Spendfolio", body)
}

func (s *SMTPEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	resetLink := fmt.Sprintf("%s?token=%s", s.PasswordResetBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nA password reset was requested for your account. Reset it here: %s\n\nIf you did not request this, ignore this email.\n\nThanks,\nThe Spendfolio Team", username, resetLink)
	return s.send(toEmail, "Reset Your Spendfolio Password", body)
}

func (s *SMTPEmailService) SendReconciliationAlert(toEmail, batchID string, report models.ReconciliationReport) error {
	subject, body := reconciliationAlertBody(batchID, report)
	return s.send(toEmail, subject, body)
}

// --- Mock (logs instead of sending; default in development) ---

type MockEmailService struct {
	VerificationEmailBaseURL string
	PasswordResetBaseURL     string
}

func (s *MockEmailService) SendVerificationEmail(toEmail, username, token string) error {
	logger.L.Info("MOCK: verification email", "to", toEmail, "username", username,
		"link", fmt.Sprintf("%s?token=%s", s.VerificationEmailBaseURL, token))
	return nil
}

func (s *MockEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	logger.L.Info("MOCK: password reset email", "to", toEmail, "username", username,
		"link", fmt.Sprintf("%s?token=%s", s.PasswordResetBaseURL, token))
	return nil
}

func (s *MockEmailService) SendReconciliationAlert(toEmail, batchID string, report models.ReconciliationReport) error {
	logger.L.Warn("MOCK: reconciliation alert email", "to", toEmail, "batchID", batchID,
		"mismatchPct", report.MismatchPct, "message", report.Message)
	return nil
}
