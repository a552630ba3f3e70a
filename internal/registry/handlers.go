package registry

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/logging"
)

// Handlers exposes the model registry over HTTP.
type Handlers struct {
	store Store
}

func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes mounts the read endpoints.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/models", h.List)
	rg.GET("/models/:id", h.Get)
}

// RegisterAdminRoutes mounts the mutating endpoints.
func (h *Handlers) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/models/:id/status", h.SetStatus)
}

func (h *Handlers) List(c *gin.Context) {
	models, err := h.store.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list models failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list models"})
		return
	}
	if models == nil {
		models = []*Model{}
	}
	c.JSON(http.StatusOK, gin.H{"models": models, "count": len(models)})
}

func (h *Handlers) Get(c *gin.Context) {
	m, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "model not found"})
			return
		}
		logging.L(c.Request.Context()).Error("get model failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load model"})
		return
	}
	c.JSON(http.StatusOK, m)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handlers) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "status is required"})
		return
	}
	m, err := h.store.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "model not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}
