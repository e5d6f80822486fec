package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"trueque-market/internal/models"
)

// Full lifecycle: two competing proposals on one garment, accept with
// cascade, two-party completion, evaluation, reputation update.
func TestFullBarterLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := seedUser(t, env.db, "u1")
	u2 := seedUser(t, env.db, "u2")
	u3 := seedUser(t, env.db, "u3")
	garmentA := seedGarment(t, env.db, u1.ID, "garment A")
	garmentB := seedGarment(t, env.db, u2.ID, "garment B")
	garmentC := seedGarment(t, env.db, u3.ID, "garment C")

	// U1 proposes A for B; U3 competes with C for B.
	proposal, err := env.trades.CreateTrade(ctx, u1.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   garmentA.ID,
		RequestedGarmentID: garmentB.ID,
		Message:            "swap?",
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	competitor, err := env.trades.CreateTrade(ctx, u3.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   garmentC.ID,
		RequestedGarmentID: garmentB.ID,
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}

	// U2 accepts U1's proposal.
	if _, err := env.trades.AcceptTrade(ctx, u2.ID, proposal.ID, "sounds good"); err != nil {
		t.Fatalf("AcceptTrade failed: %v", err)
	}
	for _, garmentID := range []uint{garmentA.ID, garmentB.ID} {
		if got := garmentState(t, env.db, garmentID); got.BindingState != models.GarmentInNegotiation {
			t.Errorf("garment %d: expected IN_NEGOTIATION, got %s", garmentID, got.BindingState)
		}
	}
	if got := tradeState(t, env, competitor); got.Status != models.TradeStatusRejected {
		t.Errorf("expected competitor REJECTED, got %s", got.Status)
	}
	// U3's garment was never bound.
	if got := garmentState(t, env.db, garmentC.ID); got.BindingState != models.GarmentAvailable {
		t.Errorf("expected garment C AVAILABLE, got %s", got.BindingState)
	}

	// The parties negotiate.
	if _, err := env.chat.PostMessage(ctx, proposal.ID, u1.ID, "meet at the market?"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if _, err := env.chat.PostMessage(ctx, proposal.ID, u2.ID, "saturday noon"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	// Both confirm the swap.
	if _, err := env.trades.CompleteTrade(ctx, u1.ID, proposal.ID); err != nil {
		t.Fatalf("CompleteTrade failed: %v", err)
	}
	completed, err := env.trades.CompleteTrade(ctx, u2.ID, proposal.ID)
	if err != nil {
		t.Fatalf("CompleteTrade failed: %v", err)
	}
	if completed.Status != models.TradeStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", completed.Status)
	}
	for _, garmentID := range []uint{garmentA.ID, garmentB.ID} {
		if got := garmentState(t, env.db, garmentID); got.BindingState != models.GarmentSwapped {
			t.Errorf("garment %d: expected SWAPPED, got %s", garmentID, got.BindingState)
		}
	}

	// U1 evaluates U2 with a straight 5.
	if _, err := env.reputation.SubmitEvaluation(ctx, u1.ID, proposal.ID, &models.SubmitEvaluationRequest{
		OverallScore: 5,
	}); err != nil {
		t.Fatalf("SubmitEvaluation failed: %v", err)
	}
	snapshot, err := env.reputation.GetReputation(ctx, u2.ID)
	if err != nil {
		t.Fatalf("GetReputation failed: %v", err)
	}
	if want := decimal.RequireFromString("5"); !snapshot.Score.Equal(want) {
		t.Errorf("expected score %s, got %s", want, snapshot.Score)
	}
	if snapshot.CompletedTrades != 1 {
		t.Errorf("expected 1 completed trade, got %d", snapshot.CompletedTrades)
	}
}
