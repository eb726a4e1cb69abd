package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends emails through the SendGrid v3 API
type SendGridMailer struct {
	key     string
	appName string
	host    string
}

// NewSendGridMailer creates a SendGrid mailer
func NewSendGridMailer(key, appName string) *SendGridMailer {
	return &SendGridMailer{
		key:     key,
		appName: appName,
		host:    sendGridHost,
	}
}

// WithHost points the mailer at a different API host
func (m *SendGridMailer) WithHost(host string) *SendGridMailer {
	m.host = host
	return m
}

func (m *SendGridMailer) Backend() string { return BackendSendGrid }

func (m *SendGridMailer) prepare(msg Message, recipients []string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	for _, to := range recipients {
		p.AddTos(sgmail.NewEmail("", to))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(sgmail.NewEmail(m.appName, msg.From))
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return v3
}

// Send posts the message to SendGrid and fails on any non-2xx answer
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if err := msg.CheckHeaders(); err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg, recipients))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
