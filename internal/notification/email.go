package notification

import (
	"fmt"

	mail "github.com/go-mail/mail"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService sends notification email over SMTP.
type EmailService struct {
	config EmailConfig
	dialer *mail.Dialer
}

// NewEmailService creates a new email service.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{
		config: config,
		dialer: mail.NewDialer(config.Host, config.Port, config.User, config.Password),
	}
}

// SendTwoFactorCode emails a login verification code.
func (s *EmailService) SendTwoFactorCode(to, username, code string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Login Verification</h2>
		<p>Hello %s,</p>
		<p>We received a request to log in to your account. Use the verification code below to complete your login:</p>
		<div style="font-size: 28px; letter-spacing: 5px; font-weight: bold; text-align: center; padding: 20px;">%s</div>
		<p>This code expires in 5 minutes. If you did not request it, you can ignore this email.</p>
	</div>`, username, code)
	return s.send(to, "2FA Code", body)
}

// SendPasswordReset emails a password reset link.
func (s *EmailService) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
		<h2>Password Reset Request</h2>
		<p>We received a request to reset your password. Click the link below to choose a new one:</p>
		<p style="text-align: center;"><a href="%s">Reset My Password</a></p>
		<p>If the link does not work, copy this address into your browser:</p>
		<p style="word-break: break-all; font-family: monospace;">%s</p>
		<p>This link expires shortly. If you did not request a reset, please ignore this email.</p>
	</div>`, resetURL, resetURL)
	return s.send(to, "Password Reset", body)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
