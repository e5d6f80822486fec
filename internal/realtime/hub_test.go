package realtime

import (
	"testing"

	"github.com/google/uuid"
)

func TestHubPublishToSubscribers(t *testing.T) {
	hub := NewHub()
	tradeID := uuid.New()
	topic := TradeTopic(tradeID)

	client := hub.NewClient(1)
	hub.Subscribe(client, topic)
	other := hub.NewClient(2)
	hub.Subscribe(other, UserTopic(2))

	hub.Publish(Message{Topic: topic, Event: EventTradeUpdated, Data: "payload"})

	select {
	case msg := <-client.Outbound:
		if msg.Event != EventTradeUpdated || msg.Topic != topic {
			t.Errorf("unexpected message %+v", msg)
		}
	default:
		t.Fatal("subscriber did not receive the message")
	}

	select {
	case msg := <-other.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestHubRemoveClient(t *testing.T) {
	hub := NewHub()
	topic := UserTopic(7)

	client := hub.NewClient(7)
	hub.Subscribe(client, topic)
	if got := hub.SubscriberCount(topic); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	hub.RemoveClient(client)
	if got := hub.SubscriberCount(topic); got != 0 {
		t.Errorf("expected 0 subscribers after removal, got %d", got)
	}

	// Publishing to an empty topic is a no-op.
	hub.Publish(Message{Topic: topic, Event: EventNotification})
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	topic := UserTopic(9)
	client := hub.NewClient(9)
	hub.Subscribe(client, topic)

	// Overfill the outbound buffer; extra messages are dropped, not queued.
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Publish(Message{Topic: topic, Event: EventNotification, Data: i})
	}

	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Errorf("expected full buffer of %d, got %d", cap(client.Outbound), got)
	}
}
