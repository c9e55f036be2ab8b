// internal/app/system/mailer/smtp.go
package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type smtpSender struct {
	dialer *gomail.Dialer
}

func newSMTP(host string, port int, user, pass string) (*smtpSender, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp: host is required")
	}
	if port == 0 {
		port = 587
	}
	return &smtpSender{dialer: gomail.NewDialer(host, port, user, pass)}, nil
}

func (s *smtpSender) name() string { return "smtp" }

// send dials per message. gomail has no context support, so a cancelled
// request is only honoured before the dial.
func (s *smtpSender) send(ctx context.Context, from, fromName string, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.TextBody)
	if e.HTMLBody != "" {
		m.AddAlternative("text/html", e.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}
