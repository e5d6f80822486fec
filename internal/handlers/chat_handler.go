package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trueque-market/internal/auth"
	"trueque-market/internal/models"
	"trueque-market/internal/services"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// PostMessage posts a message into an open negotiation
// POST /api/trades/:id/messages
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	var req models.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.chatService.PostMessage(c.Request.Context(), tradeID, userID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListMessages retrieves a trade's chat history, parties only
// GET /api/trades/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	limit, offset := parseLimitOffset(c)
	messages, err := h.chatService.ListMessages(c.Request.Context(), tradeID, userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkRead marks every message in the trade as read by the caller
// POST /api/trades/:id/messages/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	if err := h.chatService.MarkRead(c.Request.Context(), tradeID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ChatHandler) callerAndTrade(c *gin.Context) (uint, uuid.UUID, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, uuid.Nil, false
	}

	tradeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return 0, uuid.Nil, false
	}

	return userID, tradeID, true
}
