package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/rs/zerolog/log"
)

// EmailNotifier implements the Notifier interface for sending emails.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) model.Notifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth, send: smtp.SendMail}
}

// Send sends an HTML email to the configured recipients.
func (n *EmailNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := splitRecipients(n.cfg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	if err := n.send(addr, n.auth, n.cfg.From, recipients, buildMessage(n.cfg.From, recipients, subject, htmlBody)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Debug().Strs("to", recipients).Str("subject", subject).Msg("Email sent")
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	return []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)
}

func splitRecipients(to string) []string {
	var out []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
