package mailer

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/andymarkow/botmarket/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSend(t *testing.T) {
	m := NewSMTP(SMTPConfig{Host: "smtp.example.com", Port: 587, Sender: "no-reply@example.com"})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)

	m.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)

		return nil
	}

	require.NoError(t, m.Send(context.Background(), "alice@example.com", "Your code\r\nBcc: x", "123456"))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your code  Bcc: x\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\n123456")
}

func TestSMTPSendError(t *testing.T) {
	m := NewSMTP(SMTPConfig{Host: "smtp.example.com", Port: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}

	assert.Error(t, m.Send(context.Background(), "a@example.com", "s", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "a@example.com", "s", "b"), context.Canceled)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer

	m := NewLog(logger.NewLogger(logger.WithOutput(&buf)))

	require.NoError(t, m.Send(context.Background(), "bob@example.com", "Reset", "token"))
	assert.Contains(t, buf.String(), "bob@example.com")
}
