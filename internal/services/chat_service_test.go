package services

import (
	"context"
	"testing"

	"trueque-market/internal/apperrors"
	"trueque-market/internal/models"
)

func TestChatGatedOnAcceptedTrade(t *testing.T) {
	env := newTestEnv(t)
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

	// Chat is closed while the proposal is pending.
	if _, err := env.chat.PostMessage(ctx, trade.ID, alice.ID, "hello?"); !apperrors.Is(err, apperrors.CodeChatNotOpen) {
		t.Errorf("expected ChatNotOpen on pending trade, got %v", err)
	}

	if _, err := env.trades.AcceptTrade(ctx, bob.ID, trade.ID, ""); err != nil {
		t.Fatalf("AcceptTrade failed: %v", err)
	}

	msg, err := env.chat.PostMessage(ctx, trade.ID, alice.ID, "when can we meet?")
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if msg.IsSystem() {
		t.Error("party message must carry the sender")
	}

	// Outsiders cannot post or read.
	mallory := seedUser(t, env.db, "mallory")
	if _, err := env.chat.PostMessage(ctx, trade.ID, mallory.ID, "hi"); !apperrors.Is(err, apperrors.CodeNotAuthorized) {
		t.Errorf("expected NotAuthorized for outsider post, got %v", err)
	}
	if _, err := env.chat.ListMessages(ctx, trade.ID, mallory.ID, 50, 0); !apperrors.Is(err, apperrors.CodeNotAuthorized) {
		t.Errorf("expected NotAuthorized for outsider list, got %v", err)
	}

	// Completion closes the chat again.
	if _, err := env.trades.CompleteTrade(ctx, alice.ID, trade.ID); err != nil {
		t.Fatalf("CompleteTrade failed: %v", err)
	}
	if _, err := env.trades.CompleteTrade(ctx, bob.ID, trade.ID); err != nil {
		t.Fatalf("CompleteTrade failed: %v", err)
	}
	if _, err := env.chat.PostMessage(ctx, trade.ID, alice.ID, "too late"); !apperrors.Is(err, apperrors.CodeChatNotOpen) {
		t.Errorf("expected ChatNotOpen on completed trade, got %v", err)
	}
}

func TestChatUnreadAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice")
	bob := seedUser(t, env.db, "bob")
	aliceJacket := seedGarment(t, env.db, alice.ID, "denim jacket")
	bobCoat := seedGarment(t, env.db, bob.ID, "winter coat")

	trade, err := env.trades.CreateTrade(ctx, alice.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   aliceJacket.ID,
		RequestedGarmentID: bobCoat.ID,
		Message:            "intro",
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	if _, err := env.trades.AcceptTrade(ctx, bob.ID, trade.ID, "deal"); err != nil {
		t.Fatalf("AcceptTrade failed: %v", err)
	}

	// Thread so far: alice's intro, the system acceptance note, bob's reply.
	messages, err := env.chat.ListMessages(ctx, trade.ID, bob.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if !messages[1].IsSystem() {
		t.Error("expected the acceptance note to be a system message")
	}

	// Bob hasn't read alice's intro or the system note; his own reply doesn't count.
	unread, err := env.chat.UnreadCount(ctx, trade.ID, bob.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if unread != 2 {
		t.Errorf("expected 2 unread for bob, got %d", unread)
	}

	// Alice hasn't read the system note or bob's reply.
	unread, err = env.chat.UnreadCount(ctx, trade.ID, alice.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if unread != 2 {
		t.Errorf("expected 2 unread for alice, got %d", unread)
	}

	if err := env.chat.MarkRead(ctx, trade.ID, bob.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	unread, err = env.chat.UnreadCount(ctx, trade.ID, bob.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if unread != 0 {
		t.Errorf("expected 0 unread after MarkRead, got %d", unread)
	}

	// MarkRead is idempotent.
	if err := env.chat.MarkRead(ctx, trade.ID, bob.ID); err != nil {
		t.Fatalf("second MarkRead failed: %v", err)
	}

	// A new message from alice starts bob's counter again.
	if _, err := env.chat.PostMessage(ctx, trade.ID, alice.ID, "saturday works"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	unread, err = env.chat.UnreadCount(ctx, trade.ID, bob.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if unread != 1 {
		t.Errorf("expected 1 unread after new message, got %d", unread)
	}
}
