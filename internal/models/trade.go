package models

import (
	"time"

	"github.com/google/uuid"
)

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusAccepted  TradeStatus = "ACCEPTED"
	TradeStatusRejected  TradeStatus = "REJECTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusExpired   TradeStatus = "EXPIRED"
	TradeStatusCompleted TradeStatus = "COMPLETED"
)

// Terminal reports whether a trade status admits no further transitions.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeStatusRejected, TradeStatusCancelled, TradeStatusExpired, TradeStatusCompleted:
		return true
	}
	return false
}

// Closure reasons recorded when a trade leaves PENDING or ACCEPTED.
const (
	ClosureRejectedByReceiver = "rejected_by_receiver"
	ClosureCancelledByParty   = "cancelled_by_party"
	ClosureExpired            = "expired"
	ClosureLostRace           = "competing_proposal_accepted"
	ClosureCompleted          = "completed"
)

// TradeProposal represents a barter offer: the proposer offers one of their
// garments against a garment owned by the receiver.
type TradeProposal struct {
	ID                 uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OfferedGarmentID   uint        `gorm:"not null;index" json:"offered_garment_id"`
	OfferedGarment     *Garment    `gorm:"foreignKey:OfferedGarmentID" json:"offered_garment,omitempty"`
	RequestedGarmentID uint        `gorm:"not null;index" json:"requested_garment_id"`
	RequestedGarment   *Garment    `gorm:"foreignKey:RequestedGarmentID" json:"requested_garment,omitempty"`
	ProposerID         uint        `gorm:"not null;index" json:"proposer_id"`
	ReceiverID         uint        `gorm:"not null;index" json:"receiver_id"`
	Status             TradeStatus `gorm:"size:50;not null;default:PENDING;index" json:"status"`
	ClosureReason      *string     `gorm:"size:100" json:"closure_reason,omitempty"`
	// Completion handshake: both parties must confirm before COMPLETED.
	ProposerConfirmed bool       `gorm:"default:false" json:"proposer_confirmed"`
	ReceiverConfirmed bool       `gorm:"default:false" json:"receiver_confirmed"`
	CreatedAt         time.Time  `json:"created_at"`
	LastActivityAt    time.Time  `gorm:"index" json:"last_activity_at"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	// LastWarnedAt guards the sweeper's expiry reminder so each proposal is
	// warned at most once.
	LastWarnedAt *time.Time `json:"-"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (TradeProposal) TableName() string {
	return "trade_proposals"
}

// IsParty reports whether userID is the proposer or receiver.
func (t *TradeProposal) IsParty(userID uint) bool {
	return t.ProposerID == userID || t.ReceiverID == userID
}

// OtherParty returns the counterparty of userID. Callers must check IsParty first.
func (t *TradeProposal) OtherParty(userID uint) uint {
	if t.ProposerID == userID {
		return t.ReceiverID
	}
	return t.ProposerID
}

// CreateTradeRequest represents a request to open a trade proposal
type CreateTradeRequest struct {
	OfferedGarmentID   uint   `json:"offered_garment_id" binding:"required"`
	RequestedGarmentID uint   `json:"requested_garment_id" binding:"required"`
	Message            string `json:"message"`
}

// TradeResponse represents a trade proposal in API responses
type TradeResponse struct {
	ID                 string     `json:"id"`
	OfferedGarmentID   uint       `json:"offered_garment_id"`
	RequestedGarmentID uint       `json:"requested_garment_id"`
	Proposer           UserInfo   `json:"proposer"`
	Receiver           UserInfo   `json:"receiver"`
	Status             string     `json:"status"`
	ClosureReason      *string    `json:"closure_reason,omitempty"`
	UnreadMessages     int64      `json:"unread_messages"`
	CreatedAt          time.Time  `json:"created_at"`
	LastActivityAt     time.Time  `json:"last_activity_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}
