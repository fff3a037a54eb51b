// Package alert notifies operators when a dependency of the retrieval engine
// is taken out of service by a circuit breaker.
package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/soundprediction/schemagraph/pkg/config"
)

// Alerter delivers an operator notification.
type Alerter interface {
	Alert(subject, message string) error
}

// New returns an EmailAlerter when SMTP delivery is configured and a
// LogAlerter otherwise.
func New(cfg config.AlertConfig, logger *slog.Logger) Alerter {
	if cfg.Enabled && cfg.SMTPHost != "" && len(cfg.To) > 0 {
		return NewEmailAlerter(cfg)
	}
	return NewLogAlerter(logger)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailAlerter sends plain text mail through an SMTP relay.
type EmailAlerter struct {
	cfg  config.AlertConfig
	send sendFunc
	now  func() time.Time
}

func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Alert mails subject and message to every configured recipient.
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	if err := a.send(addr, auth, a.cfg.From, a.cfg.To, a.compose(subject, message)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

func (a *EmailAlerter) compose(subject, message string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", a.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(a.cfg.To, ","))
	fmt.Fprintf(&b, "Date: %s\r\n", a.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(message, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogAlerter records alerts as error level log entries.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAlerter{logger: logger}
}

func (l *LogAlerter) Alert(subject, message string) error {
	l.logger.Error(subject, "alert", message)
	return nil
}
