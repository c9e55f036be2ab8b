// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by New when neither SendGrid nor SMTP is set.
var ErrNotConfigured = errors.New("mailer: no SendGrid key or SMTP host configured")

// Email is a single outgoing message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// sender is a delivery backend.
type sender interface {
	send(ctx context.Context, from, fromName string, e Email) error
	name() string
}

// Config selects and configures the delivery backend. SendGrid wins when
// its key is set; SMTP is the fallback.
type Config struct {
	SendGridAPIKey string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	From     string
	FromName string
	SiteName string
}

// Mailer sends application email through the configured backend.
type Mailer struct {
	backend  sender
	from     string
	fromName string
	siteName string
	log      *zap.Logger
}

// New builds a Mailer from cfg.
func New(cfg Config, log *zap.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mailer: from address is required")
	}

	var backend sender
	switch {
	case cfg.SendGridAPIKey != "":
		backend = newSendGrid(cfg.SendGridAPIKey)
	case cfg.SMTPHost != "":
		b, err := newSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			return nil, fmt.Errorf("mailer: smtp client: %w", err)
		}
		backend = b
	default:
		return nil, ErrNotConfigured
	}

	siteName := cfg.SiteName
	if siteName == "" {
		siteName = "ContentHub"
	}
	log.Info("mailer configured", zap.String("backend", backend.name()), zap.String("from", cfg.From))
	return &Mailer{
		backend:  backend,
		from:     cfg.From,
		fromName: cfg.FromName,
		siteName: siteName,
		log:      log,
	}, nil
}

// Send delivers e.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return errors.New("mailer: recipient is required")
	}
	if err := m.backend.send(ctx, m.from, m.fromName, e); err != nil {
		m.log.Error("send email failed",
			zap.String("backend", m.backend.name()),
			zap.String("to", e.To),
			zap.Error(err))
		return err
	}
	m.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}

// SendPasswordReset mails a reset link that expires after expiresIn.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, link string, expiresIn time.Duration) error {
	msg := BuildPasswordResetEmail(PasswordResetEmailData{
		SiteName:  m.siteName,
		Name:      name,
		ResetLink: link,
		ExpiresIn: FormatExpiry(expiresIn),
	})
	msg.To = to
	return m.Send(ctx, msg)
}

// FormatExpiry renders d as "1 minute", "15 minutes", "2 hours" or "1 day".
func FormatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	switch {
	case minutes < 60:
		return plural(minutes, "minute")
	case minutes < 24*60:
		return plural(minutes/60, "hour")
	default:
		return plural(minutes/(24*60), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
