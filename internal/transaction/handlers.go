package transaction

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/pagination"
)

// Handler provides HTTP endpoints for transactions
type Handler struct {
	service *Service
}

// NewHandler creates a new transaction handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up transaction routes (auth required).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions/recent", h.Recent)
	r.GET("/transactions/:id", h.Get)
	r.POST("/transactions", h.Create)
}

// Recent handles GET /api/transactions/recent
//
// Query params: limit (default 10, max 50), risk_level (low|medium|high),
// cursor (opaque, from a previous response)
func (h *Handler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	riskLevel := c.Query("risk_level")

	switch riskLevel {
	case "", LevelLow, LevelMedium, LevelHigh:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "risk_level must be low, medium, or high",
		})
		return
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid cursor",
		})
		return
	}

	txns, next, more, err := h.service.RecentPage(c.Request.Context(), RecentOptions{
		Limit:     limit,
		RiskLevel: riskLevel,
		Cursor:    cursor,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list transactions",
		})
		return
	}
	if txns == nil {
		txns = []*Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txns,
		"count":        len(txns),
		"nextCursor":   next,
		"hasMore":      more,
	})
}

// Get handles GET /api/transactions/:id
func (h *Handler) Get(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Transaction not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

// Create handles POST /api/transactions
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Malformed JSON body",
		})
		return
	}

	t, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to record transaction",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": t})
}
