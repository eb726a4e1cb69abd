package mailer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ConsoleMailer writes messages to a writer instead of delivering them
type ConsoleMailer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleMailer creates a console mailer. A nil writer means stdout.
func NewConsoleMailer(out io.Writer) *ConsoleMailer {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleMailer{out: out}
}

func (m *ConsoleMailer) Backend() string { return BackendConsole }

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	data, err := buildMessage(msg, recipients)
	if err != nil {
		return fmt.Errorf("console mailer: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err = m.out.Write(data)
	if err == nil {
		_, err = fmt.Fprint(m.out, "\r\n"+strings.Repeat("-", 72)+"\r\n")
	}
	if err != nil {
		return fmt.Errorf("console mailer: %w", err)
	}

	log.Debug().Strs("to", recipients).Str("subject", msg.Subject).Msg("email written to console")
	return nil
}

// MemoryMailer keeps sent messages in memory. Setting Err makes every send fail.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

// NewMemoryMailer creates an in-memory mailer
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

func (m *MemoryMailer) Backend() string { return BackendMemory }

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if len(msg.Recipients()) == 0 {
		return ErrNoRecipients
	}
	if err := msg.CheckHeaders(); err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages
func (m *MemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// SetErr changes the error returned by subsequent sends
func (m *MemoryMailer) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Reset clears the delivered messages
func (m *MemoryMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
