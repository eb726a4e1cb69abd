package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/dars-api/config"
	"gorm.io/gorm"
)

var (
	ErrNoRecipients  = errors.New("mailer: message has no recipients")
	ErrNotConfigured = errors.New("mailer: backend is not configured")
	ErrBadHeader     = errors.New("mailer: header value contains a line break")
)

// Backend names accepted by MAIL_BACKEND
const (
	BackendConsole  = "console"
	BackendSMTP     = "smtp"
	BackendSendGrid = "sendgrid"
	BackendMemory   = "memory"
)

// Message is a plain text email
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	// UserIDs are the accounts the message is addressed to, recorded with
	// the email log. They are not part of the delivered message.
	UserIDs []uint
}

// Recipients returns the non-empty, trimmed recipient addresses
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		if to = strings.TrimSpace(to); to != "" {
			out = append(out, to)
		}
	}
	return out
}

// CheckHeaders rejects header values that would start a new header line
func (m Message) CheckHeaders() error {
	values := append([]string{m.From, m.Subject}, m.To...)
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %q", ErrBadHeader, v)
		}
	}
	return nil
}

// Mailer delivers a message synchronously
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Backend() string
}

// New builds the mailer selected by MAIL_BACKEND. When db is non-nil every
// send attempt is recorded in the email_logs table.
func New(cfg *config.EnviornmentVariable, db *gorm.DB) (Mailer, error) {
	var m Mailer

	switch strings.ToLower(cfg.MAIL_BACKEND) {
	case "", BackendConsole:
		m = NewConsoleMailer(nil)
	case BackendSMTP:
		m = NewSMTPMailer(SMTPConfig{
			Host:     cfg.SMTP_HOST,
			Port:     cfg.SMTP_PORT,
			Username: cfg.SMTP_USERNAME,
			Password: cfg.SMTP_PASSWORD,
		})
	case BackendSendGrid:
		if cfg.SENDGRID_API_KEY == "" {
			return nil, fmt.Errorf("sendgrid: %w", ErrNotConfigured)
		}
		m = NewSendGridMailer(cfg.SENDGRID_API_KEY, cfg.APP_NAME)
	case BackendMemory:
		m = NewMemoryMailer()
	default:
		return nil, fmt.Errorf("unknown MAIL_BACKEND %q", cfg.MAIL_BACKEND)
	}

	if db != nil {
		m = NewRecordingMailer(m, db)
	}
	return WithDefaultSender(m, cfg.DEFAULT_FROM_EMAIL), nil
}

type defaultSender struct {
	Mailer
	from string
}

// WithDefaultSender fills Message.From when the caller left it empty
func WithDefaultSender(m Mailer, from string) Mailer {
	return &defaultSender{Mailer: m, from: from}
}

func (d *defaultSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = d.from
	}
	return d.Mailer.Send(ctx, msg)
}
