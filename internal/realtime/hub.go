package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Event names pushed over the SSE stream.
type Event string

const (
	EventTradeUpdated Event = "TradeUpdated"
	EventChatMessage  Event = "ChatMessage"
	EventNotification Event = "Notification"
)

// Message is one hub payload addressed to a topic. Topics are "trade:<id>"
// for negotiation updates and "user:<id>" for personal notifications.
type Message struct {
	Topic string `json:"topic"`
	Event Event  `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// TradeTopic builds the per-trade topic name.
func TradeTopic(tradeID uuid.UUID) string {
	return "trade:" + tradeID.String()
}

// UserTopic builds the per-user topic name.
func UserTopic(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// Client is one connected SSE subscriber.
type Client struct {
	ID       uuid.UUID
	UserID   uint
	Topics   map[string]bool
	Outbound chan Message
}

// Hub fans out lifecycle and chat events to subscribed clients. Publishing
// never blocks: a client whose buffer is full loses the message and
// reconciles through the synchronous read APIs.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) NewClient(userID uint) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Topics:   make(map[string]bool),
		Outbound: make(chan Message, 16),
	}
}

// Subscribe adds the client to a topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	client.Topics[topic] = true

	clients, exists := h.subscriptions[topic]
	if !exists {
		clients = make(map[*Client]bool)
		h.subscriptions[topic] = clients
	}
	clients[client] = true
}

// RemoveClient unsubscribes the client from every topic.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range client.Topics {
		if subs, ok := h.subscriptions[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
	client.Topics = make(map[string]bool)
}

// Publish delivers the message to every subscriber of its topic without
// blocking the caller.
func (h *Hub) Publish(msg Message) {
	if msg.Topic == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscriptions[msg.Topic]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- msg:
		default:
			log.Printf("[Hub] Dropping message for client %s: outbound buffer full", c.ID)
		}
	}
}

// SubscriberCount reports how many clients listen on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[topic])
}

// ServeHTTP streams the client's outbound channel as server-sent events until
// the request context ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.RemoveClient(client)
			return
		case msg := <-client.Outbound:
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Printf("[Hub] Failed to marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, payload)
			flusher.Flush()
		}
	}
}
