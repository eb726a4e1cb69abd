package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer sends emails via SMTP, upgrading to TLS when the server offers STARTTLS
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) Backend() string { return BackendSMTP }

// IsConfigured checks if SMTP is properly configured
func (m *SMTPMailer) IsConfigured() bool {
	return m.config.Host != "" && m.config.Port > 0
}

// Send delivers msg to every recipient in a single SMTP transaction
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	if !m.IsConfigured() {
		return fmt.Errorf("smtp: %w", ErrNotConfigured)
	}
	data, err := buildMessage(msg, recipients)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	addr := net.JoinHostPort(m.config.Host, fmt.Sprintf("%d", m.config.Port))

	// Connect to the server
	var dialer net.Dialer
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	conn, err := smtp.NewClient(netConn, m.config.Host)
	if err != nil {
		netConn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer conn.Close()

	// Start TLS
	if ok, _ := conn.Extension("STARTTLS"); ok {
		if err := conn.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	// Authenticate
	if m.config.Username != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := conn.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	// Set the sender
	if err := conn.Mail(msg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, to := range recipients {
		if err := conn.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	// Send the email body
	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return conn.Quit()
}

// buildMessage renders the RFC 5322 headers and plain text body
func buildMessage(msg Message, recipients []string) ([]byte, error) {
	if err := msg.CheckHeaders(); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String()), nil
}
