package customer

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for customer lookups
type Handler struct {
	store Store
}

// NewHandler creates a new customer handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up customer routes (all read-only, auth required).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/customers", h.List)
	r.GET("/customers/:id", h.Get)
	r.GET("/customers/:id/accounts", h.ListAccounts)
}

// List handles GET /api/customers
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	customers, err := h.store.ListCustomers(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list customers",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"count":     len(customers),
	})
}

// Get handles GET /api/customers/:id
func (h *Handler) Get(c *gin.Context) {
	cust, err := h.store.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Customer not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": cust})
}

// ListAccounts handles GET /api/customers/:id/accounts
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.store.ListAccountsByCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Customer not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"count":    len(accounts),
	})
}
