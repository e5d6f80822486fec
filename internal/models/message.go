package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeMessage is a chat message inside an accepted trade negotiation.
// SenderID is nil for system messages posted by the state machine; those
// count as unread for both parties until each marks the thread read.
type TradeMessage struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TradeID  uuid.UUID `gorm:"type:uuid;not null;index" json:"trade_id"`
	SenderID *uint     `gorm:"index" json:"sender_id,omitempty"`
	Body     string    `gorm:"size:2000;not null" json:"body"`
	// Per-recipient read markers. A party's marker stays nil until they call
	// MarkRead; the sender's own marker is set at insert time.
	ReadByProposerAt *time.Time `json:"read_by_proposer_at,omitempty"`
	ReadByReceiverAt *time.Time `json:"read_by_receiver_at,omitempty"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
}

func (TradeMessage) TableName() string {
	return "trade_messages"
}

// IsSystem reports whether the message was posted by the state machine.
func (m *TradeMessage) IsSystem() bool {
	return m.SenderID == nil
}

// PostMessageRequest represents a chat message post
type PostMessageRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}
