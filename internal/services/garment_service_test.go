package services

import (
	"context"
	"testing"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
	"trueque-market/internal/repository"
)

func TestWithdrawGarment(t *testing.T) {
	env := newTestEnv(t)
	service := NewGarmentService(env.repo)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice")
	bob := seedUser(t, env.db, "bob")

	garment, err := service.CreateGarment(ctx, alice.ID, &models.CreateGarmentRequest{
		Title:    "denim jacket",
		Category: "jackets",
	})
	if err != nil {
		t.Fatalf("CreateGarment failed: %v", err)
	}
	if garment.BindingState != models.GarmentAvailable {
		t.Errorf("expected AVAILABLE, got %s", garment.BindingState)
	}

	// Only the owner may withdraw.
	if _, err := service.WithdrawGarment(ctx, bob.ID, garment.ID); !apperrors.Is(err, apperrors.CodeInvalidGarmentOwnership) {
		t.Errorf("expected InvalidGarmentOwnership, got %v", err)
	}

	withdrawn, err := service.WithdrawGarment(ctx, alice.ID, garment.ID)
	if err != nil {
		t.Fatalf("WithdrawGarment failed: %v", err)
	}
	if withdrawn.BindingState != models.GarmentWithdrawn {
		t.Errorf("expected WITHDRAWN, got %s", withdrawn.BindingState)
	}

	// Withdrawing twice fails the guarded update.
	if _, err := service.WithdrawGarment(ctx, alice.ID, garment.ID); !apperrors.Is(err, apperrors.CodeInvalidStateTransition) {
		t.Errorf("expected InvalidStateTransition, got %v", err)
	}
}

func TestWithdrawHeldGarmentRefused(t *testing.T) {
	env := newTestEnv(t)
	service := NewGarmentService(env.repo)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice")
	bob := seedUser(t, env.db, "bob")
	aliceJacket := seedGarment(t, env.db, alice.ID, "denim jacket")
	bobCoat := seedGarment(t, env.db, bob.ID, "winter coat")

	trade, err := env.trades.CreateTrade(ctx, alice.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   aliceJacket.ID,
		RequestedGarmentID: bobCoat.ID,
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	if _, err := env.trades.AcceptTrade(ctx, bob.ID, trade.ID, ""); err != nil {
		t.Fatalf("AcceptTrade failed: %v", err)
	}

	// A garment held by an accepted trade stays on the ledger.
	if _, err := service.WithdrawGarment(ctx, bob.ID, bobCoat.ID); !apperrors.Is(err, apperrors.CodeInvalidStateTransition) {
		t.Errorf("expected InvalidStateTransition for held garment, got %v", err)
	}
}

func TestBrowseGarmentsListsOnlyAvailable(t *testing.T) {
	env := newTestEnv(t)
	service := NewGarmentService(env.repo)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice")
	bob := seedUser(t, env.db, "bob")
	aliceJacket := seedGarment(t, env.db, alice.ID, "denim jacket")
	bobCoat := seedGarment(t, env.db, bob.ID, "winter coat")
	bobScarf := seedGarment(t, env.db, bob.ID, "wool scarf")

	// Withdraw one garment and lock another in an accepted trade.
	if _, err := service.WithdrawGarment(ctx, bob.ID, bobScarf.ID); err != nil {
		t.Fatalf("WithdrawGarment failed: %v", err)
	}
	trade, err := env.trades.CreateTrade(ctx, alice.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   aliceJacket.ID,
		RequestedGarmentID: bobCoat.ID,
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	if _, err := env.trades.AcceptTrade(ctx, bob.ID, trade.ID, ""); err != nil {
		t.Fatalf("AcceptTrade failed: %v", err)
	}
	carolDress := seedGarment(t, env.db, seedUser(t, env.db, "carol").ID, "summer dress")

	garments, total, err := service.BrowseGarments(ctx, "", 20, 0)
	if err != nil {
		t.Fatalf("BrowseGarments failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 available garment, got %d", total)
	}
	if len(garments) != 1 || garments[0].ID != carolDress.ID {
		t.Errorf("expected only garment %d in browse results, got %v", carolDress.ID, garments)
	}

	// Category filter excludes non-matching garments.
	if _, total, err = service.BrowseGarments(ctx, "coats", 20, 0); err != nil || total != 0 {
		t.Errorf("expected no garments in category coats, got total=%d err=%v", total, err)
	}
}

func TestListGarmentsByOwner(t *testing.T) {
	db := setupTestDB(t)
	service := NewGarmentService(repository.NewRepository(db))
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	for _, title := range []string{"denim jacket", "wool scarf", "linen shirt"} {
		if _, err := service.CreateGarment(ctx, alice.ID, &models.CreateGarmentRequest{
			Title:    title,
			Category: "misc",
		}); err != nil {
			t.Fatalf("CreateGarment failed: %v", err)
		}
	}

	garments, total, err := service.ListGarmentsByOwner(ctx, alice.ID, 2, 0)
	if err != nil {
		t.Fatalf("ListGarmentsByOwner failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(garments) != 2 {
		t.Errorf("expected page of 2, got %d", len(garments))
	}
}
