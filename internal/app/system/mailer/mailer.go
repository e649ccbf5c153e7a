// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Email is one outbound message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Backends.
const (
	BackendLog      = "log"
	BackendSMTP     = "smtp"
	BackendSendGrid = "sendgrid"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	SendGridKey string

	From     string
	FromName string
}

// New returns the Sender for cfg.Backend.
func New(cfg Config, logger *zap.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendLog:
		return NewLogSender(logger), nil
	case BackendSMTP:
		if cfg.SMTPHost == "" || cfg.SMTPPort == 0 {
			return nil, fmt.Errorf("smtp mail backend requires host and port")
		}
		return NewSMTP(cfg), nil
	case BackendSendGrid:
		if cfg.SendGridKey == "" {
			return nil, fmt.Errorf("sendgrid mail backend requires an api key")
		}
		return NewSendGrid(cfg.SendGridKey, cfg.FromName, cfg.From), nil
	default:
		return nil, fmt.Errorf("unknown mail backend %q", cfg.Backend)
	}
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender { return &LogSender{log: logger} }

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.log.Info("email (log backend)",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
		zap.String("body", e.TextBody))
	return nil
}
