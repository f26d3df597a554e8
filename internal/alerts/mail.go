package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// Mailer delivers alerts over SMTP with STARTTLS when the server
// offers it.
type Mailer struct {
	cfg    strategyconfig.Email
	logger *logger.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates an email channel
func NewMailer(cfg strategyconfig.Email, log *logger.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: log,
		send:   smtp.SendMail,
	}
}

// Name identifies the channel in delivery logs.
func (m *Mailer) Name() string { return "email" }

// Notify sends the alert to every recipient in one message.
func (m *Mailer) Notify(ctx context.Context, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	msg := buildMessage(m.cfg.FromAddr, m.cfg.ToAddrs, subject, body)

	if err := m.send(addr, auth, m.cfg.FromAddr, m.cfg.ToAddrs, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message.
func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
