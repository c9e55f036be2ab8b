// internal/app/system/mailer/sendgrid.go
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridSender struct {
	client *sendgrid.Client
}

func newSendGrid(apiKey string) *sendGridSender {
	return &sendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

func (s *sendGridSender) name() string { return "sendgrid" }

func (s *sendGridSender) send(ctx context.Context, from, fromName string, e Email) error {
	msg := sgmail.NewSingleEmail(
		sgmail.NewEmail(fromName, from),
		e.Subject,
		sgmail.NewEmail("", e.To),
		e.TextBody,
		e.HTMLBody,
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
