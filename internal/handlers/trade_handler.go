package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"trueque-market/internal/auth"
	"trueque-market/internal/models"
	"trueque-market/internal/services"
)

type TradeHandler struct {
	tradeService *services.TradeService
}

func NewTradeHandler(tradeService *services.TradeService) *TradeHandler {
	return &TradeHandler{tradeService: tradeService}
}

// CreateTrade proposes a new swap
// POST /api/trades
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, err := h.tradeService.CreateTrade(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, trade)
}

// GetTrade retrieves one trade, visible to its parties only
// GET /api/trades/:id
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tradeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}

	trade, err := h.tradeService.GetTradeForUser(c.Request.Context(), tradeID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trade)
}

// ListTrades retrieves the caller's trades
// GET /api/trades?role=proposer|receiver&status=PENDING
func (h *TradeHandler) ListTrades(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parseLimitOffset(c)
	role := c.Query("role")
	status := models.TradeStatus(c.Query("status"))

	trades, total, err := h.tradeService.ListTradesFor(c.Request.Context(), userID, role, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades": trades,
		"total":  total,
	})
}

// AcceptTrade accepts a pending proposal and opens the negotiation
// POST /api/trades/:id/accept
func (h *TradeHandler) AcceptTrade(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	trade, err := h.tradeService.AcceptTrade(c.Request.Context(), userID, tradeID, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trade)
}

// RejectTrade declines a pending proposal
// POST /api/trades/:id/reject
func (h *TradeHandler) RejectTrade(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	if err := h.tradeService.RejectTrade(c.Request.Context(), userID, tradeID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.TradeStatusRejected})
}

// CancelTrade withdraws a pending or accepted trade
// POST /api/trades/:id/cancel
func (h *TradeHandler) CancelTrade(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	if err := h.tradeService.CancelTrade(c.Request.Context(), userID, tradeID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": models.TradeStatusCancelled})
}

// CompleteTrade confirms the physical swap; the second confirmation closes
// the trade
// POST /api/trades/:id/complete
func (h *TradeHandler) CompleteTrade(c *gin.Context) {
	userID, tradeID, ok := h.callerAndTrade(c)
	if !ok {
		return
	}

	trade, err := h.tradeService.CompleteTrade(c.Request.Context(), userID, tradeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trade)
}

func (h *TradeHandler) callerAndTrade(c *gin.Context) (uint, uuid.UUID, bool) {
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
