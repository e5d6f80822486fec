package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"
)

func TestGarmentLedgerReservation(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ledger := NewGarmentLedger(repo)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	garment := seedGarment(t, db, alice.ID, "denim jacket")

	holder := uuid.New()
	rival := uuid.New()

	available, err := ledger.CheckAvailable(ctx, garment.ID)
	if err != nil {
		t.Fatalf("CheckAvailable failed: %v", err)
	}
	if !available {
		t.Fatal("expected garment to start available")
	}

	if err := ledger.ReserveExclusive(ctx, garment.ID, holder); err != nil {
		t.Fatalf("ReserveExclusive failed: %v", err)
	}

	// Re-reserving by the holder is a no-op.
	if err := ledger.ReserveExclusive(ctx, garment.ID, holder); err != nil {
		t.Errorf("holder re-reservation should be idempotent, got %v", err)
	}

	// Any other trade is refused.
	if err := ledger.ReserveExclusive(ctx, garment.ID, rival); !apperrors.Is(err, apperrors.CodeAlreadyReserved) {
		t.Errorf("expected AlreadyReserved, got %v", err)
	}

	// Releasing by a non-holder leaves the hold in place.
	if err := ledger.Release(ctx, garment.ID, rival); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if got := garmentState(t, db, garment.ID); got.BindingState != models.GarmentInNegotiation {
		t.Errorf("non-holder release must be a no-op, got %s", got.BindingState)
	}

	// The holder's release frees the garment.
	if err := ledger.Release(ctx, garment.ID, holder); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	got := garmentState(t, db, garment.ID)
	if got.BindingState != models.GarmentAvailable {
		t.Errorf("expected AVAILABLE, got %s", got.BindingState)
	}
	if got.HeldByTradeID != nil {
		t.Error("expected no holder after release")
	}
}

func TestGarmentLedgerMarkSwapped(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ledger := NewGarmentLedger(repo)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	garment := seedGarment(t, db, alice.ID, "denim jacket")
	holder := uuid.New()

	// Swapping an unheld garment fails.
	if err := ledger.MarkSwapped(ctx, garment.ID, holder); !apperrors.Is(err, apperrors.CodeInvalidStateTransition) {
		t.Errorf("expected InvalidStateTransition, got %v", err)
	}

	if err := ledger.ReserveExclusive(ctx, garment.ID, holder); err != nil {
		t.Fatalf("ReserveExclusive failed: %v", err)
	}
	if err := ledger.MarkSwapped(ctx, garment.ID, holder); err != nil {
		t.Fatalf("MarkSwapped failed: %v", err)
	}
	if got := garmentState(t, db, garment.ID); got.BindingState != models.GarmentSwapped {
		t.Errorf("expected SWAPPED, got %s", got.BindingState)
	}
}
