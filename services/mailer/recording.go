package mailer

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordingMailer persists an EmailLog row for every attempt made through
// the wrapped mailer
type RecordingMailer struct {
	next Mailer
	db   *gorm.DB
}

// NewRecordingMailer wraps next
func NewRecordingMailer(next Mailer, db *gorm.DB) *RecordingMailer {
	return &RecordingMailer{next: next, db: db}
}

func (m *RecordingMailer) Backend() string { return m.next.Backend() }

func (m *RecordingMailer) Send(ctx context.Context, msg Message) error {
	sendErr := m.next.Send(ctx, msg)

	recipients, err := json.Marshal(msg.Recipients())
	if err != nil {
		recipients = []byte("[]")
	}

	entry := model.EmailLog{
		Backend:    m.next.Backend(),
		Sender:     msg.From,
		Recipients: datatypes.JSON(recipients),
		Subject:    msg.Subject,
		Body:       msg.Body,
		Status:     model.EmailStatusSent,
	}
	seen := make(map[uint]bool, len(msg.UserIDs))
	for _, id := range msg.UserIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		entry.RecipientUsers = append(entry.RecipientUsers, model.EmailLogRecipient{UserID: id})
	}
	if sendErr != nil {
		entry.Status = model.EmailStatusFailed
		entry.Error = sendErr.Error()
	}

	// A lost log row must not change the outcome of the send
	if err := m.db.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to record email log")
	}

	return sendErr
}
