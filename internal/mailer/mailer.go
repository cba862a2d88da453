// Package mailer delivers password reset emails.
//
// SMTPMailer sends real mail; LogMailer writes the message to the logger and
// is the default when SMTP_HOST is unset. Both render the same templates.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Mailer is what the password reset workflow needs.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to string, data PasswordResetData) error
}

// PasswordResetData feeds the reset email template.
type PasswordResetData struct {
	Username  string
	ResetLink string
	ExpiresIn time.Duration
}

const resetSubject = "Password reset on teamboard"

var templates = template.Must(template.New("emails").Parse(`
{{define "password_reset"}}<!DOCTYPE html>
<html>
<body>
<p>Hello {{.Username}},</p>
<p>You're receiving this email because a password reset was requested for your account.</p>
<p><a href="{{.ResetLink}}">Choose a new password</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this email.</p>
</body>
</html>{{end}}
`))

func render(data PasswordResetData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "password_reset", data); err != nil {
		return "", fmt.Errorf("mailer: rendering password_reset: %w", err)
	}
	return buf.String(), nil
}

// =========================================================================
// LOG MAILER
// =========================================================================

type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to string, data PasswordResetData) error {
	if _, err := render(data); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "password reset email (not sent, SMTP disabled)",
		slog.String("to", to),
		slog.String("username", data.Username),
		slog.String("link", data.ResetLink),
	)
	return nil
}

// =========================================================================
// SMTP MAILER
// =========================================================================

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to string, data PasswordResetData) error {
	body, err := render(data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, envelopeAddress(m.cfg.From), []string{to}, m.message(to, body)); err != nil {
		return fmt.Errorf("mailer: sending to %s via %s: %w", to, addr, err)
	}
	return nil
}

func (m *SMTPMailer) message(to, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + resetSubject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// envelopeAddress extracts "addr" from "Name <addr>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}
