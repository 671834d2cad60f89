package notification

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"FlowSpectra/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailNotifier_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewEmailNotifier(config.SMTPConfig{
		Host: "mail.example.com", Port: 587,
		From: "flowspectra@example.com", To: "a@example.com, b@example.com,",
	}).(*EmailNotifier)
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, n.Send(context.Background(), "subject line", "<p>hi</p>"))

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, "flowspectra@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: subject line\r\n")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestEmailNotifier_Errors(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "h", Port: 25, To: " "}).(*EmailNotifier)
	assert.Error(t, n.Send(context.Background(), "s", "b"))

	n.cfg.To = "a@example.com"
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, n.Send(context.Background(), "s", "b"), "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "s", "b"), context.Canceled)
}
