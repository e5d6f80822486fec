package services

import (
	"context"
	"fmt"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GarmentLedger owns garment binding state. Only the trade state machine
// mutates it; everything else reads through CheckAvailable.
type GarmentLedger struct {
	repo *repository.Repository
}

func NewGarmentLedger(repo *repository.Repository) *GarmentLedger {
	return &GarmentLedger{repo: repo}
}

// WithTx returns a ledger bound to a transaction handle so reservations
// commit atomically with the trade transition that caused them.
func (gl *GarmentLedger) WithTx(tx *gorm.DB) *GarmentLedger {
	return &GarmentLedger{repo: gl.repo.WithTx(tx)}
}

// CheckAvailable reports whether the garment can enter a new negotiation.
func (gl *GarmentLedger) CheckAvailable(ctx context.Context, garmentID uint) (bool, error) {
	garment, err := gl.repo.GetGarmentByID(ctx, garmentID)
	if err == gorm.ErrRecordNotFound {
		return false, apperrors.NotFound("garment %d not found", garmentID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get garment: %w", err)
	}
	return garment.BindingState == models.GarmentAvailable, nil
}

// ReserveExclusive locks a garment to an accepted trade. Idempotent for the
// holding trade; any other holder fails the reservation.
func (gl *GarmentLedger) ReserveExclusive(ctx context.Context, garmentID uint, tradeID uuid.UUID) error {
	garment, err := gl.repo.GetGarmentByID(ctx, garmentID)
	if err == gorm.ErrRecordNotFound {
		return apperrors.NotFound("garment %d not found", garmentID)
	}
	if err != nil {
		return fmt.Errorf("failed to get garment: %w", err)
	}

	if garment.BindingState == models.GarmentInNegotiation {
		if garment.HeldByTradeID != nil && *garment.HeldByTradeID == tradeID {
			return nil
		}
		return apperrors.New(apperrors.KindStateConflict, apperrors.CodeAlreadyReserved,
			"garment %d is held by another negotiation", garmentID)
	}

	rows, err := gl.repo.BindGarment(ctx, garmentID,
		models.GarmentAvailable, models.GarmentInNegotiation, &tradeID)
	if err != nil {
		return fmt.Errorf("failed to reserve garment: %w", err)
	}
	if rows == 0 {
		// Lost the race or the garment left AVAILABLE in between.
		return apperrors.New(apperrors.KindStateConflict, apperrors.CodeAlreadyReserved,
			"garment %d is not available for reservation", garmentID)
	}

	return nil
}

// Release returns a garment to AVAILABLE if this trade holds it. Releasing a
// garment held by a different trade, or not held at all, is a no-op.
func (gl *GarmentLedger) Release(ctx context.Context, garmentID uint, tradeID uuid.UUID) error {
	_, err := gl.repo.ReleaseGarmentHold(ctx, garmentID, tradeID)
	if err != nil {
		return fmt.Errorf("failed to release garment: %w", err)
	}
	return nil
}

// MarkSwapped finalizes a held garment on trade completion.
func (gl *GarmentLedger) MarkSwapped(ctx context.Context, garmentID uint, tradeID uuid.UUID) error {
	rows, err := gl.repo.SwapHeldGarment(ctx, garmentID, tradeID)
	if err != nil {
		return fmt.Errorf("failed to finalize garment: %w", err)
	}
	if rows == 0 {
		return apperrors.InvalidStateTransition(
			"garment %d is not held by trade %s", garmentID, tradeID)
	}
	return nil
}
