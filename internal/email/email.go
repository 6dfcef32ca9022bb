// Package email delivers the password-reset mail. Delivery failures are
// the caller's to log; nothing here retries.
package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"tally/internal/log"
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends mail through a single SMTP relay with PLAIN auth.
type SMTPSender struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	addr := s.Host + ":" + s.Port
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s via %s: %w", to, addr, err)
	}
	return nil
}

// LogSender writes the mail to the log instead of delivering it, for
// development and for deployments without an SMTP relay.
type LogSender struct {
	Logger *log.Logger
}

func (s *LogSender) Send(to, subject, body string) error {
	s.Logger.Info("email suppressed (no SMTP relay configured)",
		"to", to,
		"subject", subject,
	)
	return nil
}
