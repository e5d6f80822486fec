package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trueque-market/internal/auth"
	"trueque-market/internal/models"
	"trueque-market/internal/services"
)

type GarmentHandler struct {
	garmentService *services.GarmentService
	ledger         *services.GarmentLedger
}

func NewGarmentHandler(garmentService *services.GarmentService, ledger *services.GarmentLedger) *GarmentHandler {
	return &GarmentHandler{garmentService: garmentService, ledger: ledger}
}

// CreateGarment lists a new garment
// POST /api/garments
func (h *GarmentHandler) CreateGarment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateGarmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	garment, err := h.garmentService.CreateGarment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, garment)
}

// GetGarment retrieves a garment by ID
// GET /api/garments/:id
func (h *GarmentHandler) GetGarment(c *gin.Context) {
	garmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid garment id"})
		return
	}

	garment, err := h.garmentService.GetGarment(c.Request.Context(), uint(garmentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, garment)
}

// ListGarments browses garments open to new proposals
// GET /api/garments?category=
func (h *GarmentHandler) ListGarments(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	garments, total, err := h.garmentService.BrowseGarments(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"garments": garments,
		"total":    total,
	})
}

// GetAvailability reports whether a garment can enter a new negotiation
// GET /api/garments/:id/availability
func (h *GarmentHandler) GetAvailability(c *gin.Context) {
	garmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid garment id"})
		return
	}

	available, err := h.ledger.CheckAvailable(c.Request.Context(), uint(garmentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"garment_id": uint(garmentID),
		"available":  available,
	})
}

// ListMyGarments retrieves the caller's garments
// GET /api/garments/mine
func (h *GarmentHandler) ListMyGarments(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parseLimitOffset(c)
	garments, total, err := h.garmentService.ListGarmentsByOwner(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"garments": garments,
		"total":    total,
	})
}

// WithdrawGarment pulls a garment off the market
// POST /api/garments/:id/withdraw
func (h *GarmentHandler) WithdrawGarment(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	garmentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid garment id"})
		return
	}

	garment, err := h.garmentService.WithdrawGarment(c.Request.Context(), userID, uint(garmentID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, garment)
}
