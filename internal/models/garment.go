package models

import (
	"time"

	"github.com/google/uuid"
)

type GarmentBindingState string

const (
	GarmentAvailable     GarmentBindingState = "AVAILABLE"
	GarmentInNegotiation GarmentBindingState = "IN_NEGOTIATION"
	GarmentSwapped       GarmentBindingState = "SWAPPED"
	GarmentWithdrawn     GarmentBindingState = "WITHDRAWN"
)

// Garment represents a listed garment. BindingState is owned by the trade
// state machine: nothing outside TradeService/GarmentLedger writes it.
type Garment struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	OwnerID      uint                `gorm:"not null;index" json:"owner_id"`
	Owner        *User               `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title        string              `gorm:"size:255;not null" json:"title"`
	Description  string              `gorm:"size:2000" json:"description"`
	Category     string              `gorm:"size:100;index" json:"category"`
	Size         string              `gorm:"size:20" json:"size"`
	Condition    string              `gorm:"size:50" json:"condition"`
	ImageURL     *string             `gorm:"size:500" json:"image_url,omitempty"`
	BindingState GarmentBindingState `gorm:"size:50;not null;default:AVAILABLE;index" json:"binding_state"`
	// HeldByTradeID is the accepted trade currently holding this garment,
	// set iff BindingState == IN_NEGOTIATION.
	HeldByTradeID *uuid.UUID `gorm:"type:uuid;index" json:"held_by_trade_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Garment) TableName() string {
	return "garments"
}

// CreateGarmentRequest represents a request to list a new garment
type CreateGarmentRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" binding:"required"`
	Size        string  `json:"size"`
	Condition   string  `json:"condition"`
	ImageURL    *string `json:"image_url"`
}
