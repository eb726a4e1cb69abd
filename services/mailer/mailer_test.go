package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sahilchouksey/dars-api/config"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.EmailLog{}, &model.EmailLogRecipient{}))
	return db
}

func TestMessageRecipients(t *testing.T) {
	msg := Message{To: []string{" a@example.com ", "", "  ", "b@example.com"}}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.Recipients())
}

func TestConsoleMailer(t *testing.T) {
	var out bytes.Buffer
	m := NewConsoleMailer(&out)

	err := m.Send(context.Background(), Message{
		From:    "noreply@dars.uz",
		To:      []string{"jane@example.com"},
		Subject: "Course updated",
		Body:    "Course 'Intro' has been updated.",
	})
	require.NoError(t, err)

	written := out.String()
	assert.Contains(t, written, "From: noreply@dars.uz\r\n")
	assert.Contains(t, written, "To: jane@example.com\r\n")
	assert.Contains(t, written, "Subject: Course updated\r\n")
	assert.Contains(t, written, "Course 'Intro' has been updated.")

	assert.ErrorIs(t, m.Send(context.Background(), Message{Subject: "nobody"}), ErrNoRecipients)
}

func TestMemoryMailer(t *testing.T) {
	m := NewMemoryMailer()

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "one"}))
	require.Len(t, m.Sent(), 1)

	boom := errors.New("boom")
	m.SetErr(boom)
	assert.ErrorIs(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}), boom)
	assert.Len(t, m.Sent(), 1)

	m.SetErr(nil)
	m.Reset()
	assert.Empty(t, m.Sent())
}

func TestWithDefaultSender(t *testing.T) {
	mem := NewMemoryMailer()
	m := WithDefaultSender(mem, "noreply@dars.uz")

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}}))
	require.NoError(t, m.Send(context.Background(), Message{From: "custom@dars.uz", To: []string{"a@example.com"}}))

	sent := mem.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "noreply@dars.uz", sent[0].From)
	assert.Equal(t, "custom@dars.uz", sent[1].From)
	assert.Equal(t, BackendMemory, m.Backend())
}

func TestRecordingMailer(t *testing.T) {
	db := openTestDB(t)
	mem := NewMemoryMailer()
	m := NewRecordingMailer(mem, db)

	msg := Message{From: "noreply@dars.uz", To: []string{"a@example.com", "b@example.com"}, Subject: "New course created", Body: "hi"}
	require.NoError(t, m.Send(context.Background(), msg))

	mem.SetErr(errors.New("relay down"))
	require.Error(t, m.Send(context.Background(), msg))

	var logs []model.EmailLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	assert.Equal(t, model.EmailStatusSent, logs[0].Status)
	assert.Equal(t, BackendMemory, logs[0].Backend)
	assert.Equal(t, "noreply@dars.uz", logs[0].Sender)

	var recipients []string
	require.NoError(t, json.Unmarshal(logs[0].Recipients, &recipients))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, recipients)

	assert.Equal(t, model.EmailStatusFailed, logs[1].Status)
	assert.Equal(t, "relay down", logs[1].Error)
}

func TestRecordingMailer_LinksRecipientAccounts(t *testing.T) {
	db := openTestDB(t)
	m := NewRecordingMailer(NewMemoryMailer(), db)

	msg := Message{To: []string{"a@example.com"}, Subject: "Course updated", UserIDs: []uint{7, 0, 7, 9}}
	require.NoError(t, m.Send(context.Background(), msg))

	var links []model.EmailLogRecipient
	require.NoError(t, db.Order("user_id").Find(&links).Error)
	require.Len(t, links, 2)
	assert.Equal(t, uint(7), links[0].UserID)
	assert.Equal(t, uint(9), links[1].UserID)
	assert.Equal(t, links[0].EmailLogID, links[1].EmailLogID)
}

func TestLineBreaksInHeadersAreRejected(t *testing.T) {
	cases := map[string]Message{
		"subject":   {From: "noreply@dars.uz", To: []string{"a@example.com"}, Subject: "Aziz\r\nBcc: evil@x.com"},
		"lf only":   {From: "noreply@dars.uz", To: []string{"a@example.com"}, Subject: "Aziz\nBcc: evil@x.com"},
		"recipient": {From: "noreply@dars.uz", To: []string{"a@example.com\r\nBcc: evil@x.com"}, Subject: "hi"},
		"sender":    {From: "noreply@dars.uz\nBcc: evil@x.com", To: []string{"a@example.com"}, Subject: "hi"},
	}

	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := buildMessage(msg, msg.Recipients())
			assert.ErrorIs(t, err, ErrBadHeader)

			var out bytes.Buffer
			assert.ErrorIs(t, NewConsoleMailer(&out).Send(context.Background(), msg), ErrBadHeader)
			assert.Empty(t, out.String())

			mem := NewMemoryMailer()
			assert.ErrorIs(t, mem.Send(context.Background(), msg), ErrBadHeader)
			assert.Empty(t, mem.Sent())

			assert.ErrorIs(t, NewSendGridMailer("key", "Dars").Send(context.Background(), msg), ErrBadHeader)
		})
	}

	body := Message{From: "noreply@dars.uz", To: []string{"a@example.com"}, Subject: "ok", Body: "line one\nline two"}
	data, err := buildMessage(body, body.Recipients())
	require.NoError(t, err)
	assert.Contains(t, string(data), "line one\r\nline two")
}

func TestSendGridMailer(t *testing.T) {
	var payload map[string]interface{}
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != sendGridEndpoint {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	m := NewSendGridMailer("sg-key", "Dars").WithHost(server.URL)
	err := m.Send(context.Background(), Message{
		From:    "noreply@dars.uz",
		To:      []string{"jane@example.com"},
		Subject: "New course created",
		Body:    "Course 'Intro' was created successfully.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", auth)
	from := payload["from"].(map[string]interface{})
	assert.Equal(t, "noreply@dars.uz", from["email"])
	personalizations := payload["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	assert.Equal(t, "New course created", personalizations[0].(map[string]interface{})["subject"])
}

func TestSendGridMailer_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	m := NewSendGridMailer("bad", "Dars").WithHost(server.URL)
	err := m.Send(context.Background(), Message{From: "noreply@dars.uz", To: []string{"jane@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSMTPMailer_RequiresConfiguration(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{})
	err := m.Send(context.Background(), Message{To: []string{"jane@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = m.Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestNew(t *testing.T) {
	cfg := &config.EnviornmentVariable{MAIL_BACKEND: "memory", DEFAULT_FROM_EMAIL: "noreply@dars.uz"}
	m, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, m.Backend())

	_, err = New(&config.EnviornmentVariable{MAIL_BACKEND: "sendgrid"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(&config.EnviornmentVariable{MAIL_BACKEND: "pigeon"}, nil)
	assert.Error(t, err)
}
