// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/andymarkow/botmarket/internal/logger"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends plain-text mail through an SMTP relay.
type SMTP struct {
	addr   string
	sender string
	auth   smtp.Auth
	send   sendFunc
}

var _ Mailer = (*SMTP)(nil)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}

	return &SMTP{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		sender: cfg.Sender,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (m *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.send(m.addr, m.auth, m.sender, []string{to}, buildMessage(m.sender, to, subject, body)); err != nil {
		return fmt.Errorf("smtp.SendMail: %w", err)
	}

	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(body)

	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// Log writes messages to the logger instead of delivering them. Used when no SMTP host is set.
type Log struct {
	log *slog.Logger
}

var _ Mailer = (*Log)(nil)

func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = logger.Nop()
	}

	return &Log{log: log.With(slog.String("module", "mailer"))}
}

func (m *Log) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("Email not delivered, SMTP is not configured",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)

	return nil
}
