package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trueque-market/internal/auth"
	"trueque-market/internal/realtime"
	"trueque-market/internal/services"
)

type EventsHandler struct {
	hub          *realtime.Hub
	tradeService *services.TradeService
}

func NewEventsHandler(hub *realtime.Hub, tradeService *services.TradeService) *EventsHandler {
	return &EventsHandler{hub: hub, tradeService: tradeService}
}

// Subscribe opens an SSE stream for the caller. The ?topics= parameter is a
// comma-separated topic list; the caller's own user topic is always included.
// Trade topics require the caller to be a party to that trade.
// GET /api/events?topics=trade:<uuid>,trade:<uuid>
func (h *EventsHandler) Subscribe(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	client := h.hub.NewClient(userID)
	h.hub.Subscribe(client, realtime.UserTopic(userID))

	for _, topic := range strings.Split(c.Query("topics"), ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}

		tradeIDRaw, isTrade := strings.CutPrefix(topic, "trade:")
		if !isTrade {
			// Only own-user and trade topics are subscribable.
			continue
		}

		tradeID, err := uuid.Parse(tradeIDRaw)
		if err != nil {
			h.hub.RemoveClient(client)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade topic"})
			return
		}

		if _, err := h.tradeService.GetTradeForUser(c.Request.Context(), tradeID, userID); err != nil {
			h.hub.RemoveClient(client)
			respondError(c, err)
			return
		}

		h.hub.Subscribe(client, topic)
	}

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
