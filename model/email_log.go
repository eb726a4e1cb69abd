package model

import (
	"time"

	"gorm.io/datatypes"
)

// EmailStatus is the outcome of a single send attempt
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// EmailLog records every outgoing notification attempt
type EmailLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Backend    string         `gorm:"type:varchar(20);not null" json:"backend"`
	Sender     string         `gorm:"type:varchar(254)" json:"sender"`
	Recipients datatypes.JSON `json:"recipients"`
	Subject    string         `gorm:"type:varchar(255)" json:"subject"`
	Body       string         `gorm:"type:text" json:"body"`
	Status     EmailStatus    `gorm:"type:varchar(10);index;not null" json:"status"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`

	// Accounts the message was addressed to; the feed is scoped by these
	// rather than by address since emails are not unique
	RecipientUsers []EmailLogRecipient `gorm:"foreignKey:EmailLogID;constraint:OnDelete:CASCADE" json:"-"`
}

// EmailLogRecipient links an email log row to a recipient account
type EmailLogRecipient struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	EmailLogID uint `gorm:"not null;uniqueIndex:idx_email_log_recipient" json:"email_log_id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_email_log_recipient;index" json:"user_id"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
