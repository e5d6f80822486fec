package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"trueque-market/internal/models"
	"trueque-market/internal/realtime"
)

func TestNotificationSendStoresAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := seedUser(t, env.db, "alice")
	client := env.hub.NewClient(alice.ID)
	env.hub.Subscribe(client, realtime.UserTopic(alice.ID))

	ref := uuid.New()
	env.notifier.Send(ctx, alice.ID, "New trade proposal", "someone wants your coat",
		models.NotificationTradeProposed, &ref)

	stored, total, err := env.notifier.ListNotifications(ctx, alice.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if total != 1 || len(stored) != 1 {
		t.Fatalf("expected 1 stored notification, got %d", total)
	}
	if stored[0].Type != models.NotificationTradeProposed || stored[0].ReadAt != nil {
		t.Errorf("unexpected notification %+v", stored[0])
	}

	select {
	case msg := <-client.Outbound:
		if msg.Event != realtime.EventNotification {
			t.Errorf("expected %s event, got %s", realtime.EventNotification, msg.Event)
		}
	default:
		t.Error("expected a realtime push on the user topic")
	}

	if err := env.notifier.MarkRead(ctx, stored[0].ID, alice.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	after, _, err := env.notifier.ListNotifications(ctx, alice.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if after[0].ReadAt == nil {
		t.Error("expected read_at to be set")
	}
}
