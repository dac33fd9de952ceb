// Package mail delivers one-time codes over SMTP, plus a log-only mailer
// for development. Both satisfy the engine's Mailer contract.
package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// SMTPConfig locates the outbound SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the envelope sender and From header.
	From string
	// AppName appears in subject lines. Defaults to "authkit".
	AppName string
}

// SMTPMailer sends plain-text code emails through one SMTP relay.
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTP returns a mailer for the given relay.
func NewSMTP(cfg SMTPConfig) *SMTPMailer {
	if cfg.AppName == "" {
		cfg.AppName = "authkit"
	}
	return &SMTPMailer{config: cfg}
}

// SendVerificationCode emails an account verification code.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	subject := fmt.Sprintf("%s: verify your email", m.config.AppName)
	body := fmt.Sprintf(
		"Your verification code is %s.\r\n\r\nIt expires in a few minutes. If you did not create an account, ignore this message.\r\n",
		code,
	)
	return m.send(ctx, email, subject, body)
}

// SendPasswordResetCode emails a password reset code.
func (m *SMTPMailer) SendPasswordResetCode(ctx context.Context, email, code string) error {
	subject := fmt.Sprintf("%s: password reset", m.config.AppName)
	body := fmt.Sprintf(
		"Your password reset code is %s.\r\n\r\nIt expires in a few minutes. If you did not request a reset, ignore this message.\r\n",
		code,
	)
	return m.send(ctx, email, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes codes to the process log instead of sending mail.
// Development only: it defeats the point of email verification in
// production.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) logf(format string, args ...interface{}) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (m LogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.logf("mail: verification code for %s: %s", email, code)
	return nil
}

func (m LogMailer) SendPasswordResetCode(_ context.Context, email, code string) error {
	m.logf("mail: password reset code for %s: %s", email, code)
	return nil
}
