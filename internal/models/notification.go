package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types pushed by the trade lifecycle.
const (
	NotificationTradeProposed  = "TRADE_PROPOSED"
	NotificationTradeAccepted  = "TRADE_ACCEPTED"
	NotificationTradeRejected  = "TRADE_REJECTED"
	NotificationTradeCancelled = "TRADE_CANCELLED"
	NotificationTradeExpired   = "TRADE_EXPIRED"
	NotificationTradeExpiring  = "TRADE_EXPIRING_SOON"
	NotificationTradeCompleted = "TRADE_COMPLETED"
	NotificationNewMessage     = "NEW_MESSAGE"
	NotificationNewEvaluation  = "NEW_EVALUATION"
)

// Notification is a stored copy of a pushed event so clients can reconcile
// after reconnecting; real-time delivery is best effort only.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Type        string     `gorm:"size:50;not null" json:"type"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Body        string     `gorm:"size:1000" json:"body"`
	ReferenceID *uuid.UUID `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
