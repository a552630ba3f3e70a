package cases

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/validation"
)

// Handlers exposes case management over HTTP
type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes mounts the case endpoints on the given group.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cases", h.List)
	rg.POST("/cases", h.Create)
	rg.GET("/cases/:id", h.Get)
	rg.PATCH("/cases/:id", h.Patch)
}

func (h *Handlers) List(c *gin.Context) {
	var opts ListOptions
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit", "message": "limit must be an integer"})
			return
		}
		opts.Limit = n
	}
	if status := c.Query("status"); status != "" {
		if !validStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status", "message": "unknown case status"})
			return
		}
		opts.Status = status
	}
	if priority := c.Query("priority"); priority != "" {
		if !validPriority(priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_priority", "message": "unknown case priority"})
			return
		}
		opts.Priority = priority
	}

	list, err := h.store.List(c.Request.Context(), opts)
	if err != nil {
		logging.L(c.Request.Context()).Error("list cases failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list cases"})
		return
	}
	if list == nil {
		list = []*Case{}
	}
	c.JSON(http.StatusOK, gin.H{"cases": list, "count": len(list)})
}

type createRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AlertID     string `json:"alertId"`
	CustomerID  string `json:"customerId"`
	AssignedTo  string `json:"assignedTo"`
}

func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "title is required"})
		return
	}
	if req.AlertID != "" && !validation.IsValidID(req.AlertID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "alertId is malformed"})
		return
	}
	if req.CustomerID != "" && !validation.IsValidID(req.CustomerID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "customerId is malformed"})
		return
	}

	kase := &Case{
		Title:       validation.SanitizeString(req.Title, 200),
		Description: validation.SanitizeString(req.Description, 2000),
		Priority:    req.Priority,
		AlertID:     req.AlertID,
		CustomerID:  req.CustomerID,
		AssignedTo:  req.AssignedTo,
	}
	if err := h.store.Create(c.Request.Context(), kase); err != nil {
		if errors.Is(err, ErrInvalidPriority) || errors.Is(err, ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}
		logging.L(c.Request.Context()).Error("create case failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create case"})
		return
	}
	c.JSON(http.StatusCreated, kase)
}

func (h *Handlers) Get(c *gin.Context) {
	kase, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "case not found"})
			return
		}
		logging.L(c.Request.Context()).Error("get case failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load case"})
		return
	}
	c.JSON(http.StatusOK, kase)
}

func (h *Handlers) Patch(c *gin.Context) {
	var upd Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "malformed update body"})
		return
	}

	kase, err := h.store.Apply(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "case not found"})
		case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidPriority), errors.Is(err, ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		default:
			logging.L(c.Request.Context()).Error("update case failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update case"})
		}
		return
	}
	c.JSON(http.StatusOK, kase)
}
