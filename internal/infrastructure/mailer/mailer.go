package mailer

import (
	"context"
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"MarketDigest/internal/config"
	"MarketDigest/internal/ports"
)

// SMTPMailer delivers the finished digest over SSL SMTP. Gmail requires an
// app password, not the account password.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *slog.Logger
}

var _ ports.Notifier = (*SMTPMailer)(nil)

// New wires the mailer.
func New(cfg config.MailConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// SendReport sends the report body as plain text to every recipient.
func (m *SMTPMailer) SendReport(ctx context.Context, subject, body string) error {
	if m.cfg.From == "" || m.cfg.Password == "" {
		return fmt.Errorf("mail credentials not configured")
	}
	if len(m.cfg.To) == 0 {
		return fmt.Errorf("no mail recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.From, m.cfg.Password)
	dialer.SSL = m.cfg.Port == 465

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}
	m.logger.Info("report mailed", "recipients", len(m.cfg.To))
	return nil
}
