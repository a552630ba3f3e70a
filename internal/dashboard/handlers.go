package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/health"
	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/registry"
)

// BacklogReporter exposes the assessment queue depth for system status.
type BacklogReporter interface {
	Backlog() int
}

// Handlers serves the dashboard overview and system status endpoints.
type Handlers struct {
	aggregator *Aggregator
	checks     *health.Registry
	models     registry.Store
	backlog    BacklogReporter
}

func NewHandlers(aggregator *Aggregator, checks *health.Registry, models registry.Store, backlog BacklogReporter) *Handlers {
	return &Handlers{aggregator: aggregator, checks: checks, models: models, backlog: backlog}
}

// RegisterRoutes mounts the dashboard endpoints on the given group.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/metrics/dashboard", h.Overview)
	rg.GET("/system/status", h.SystemStatus)
}

func (h *Handlers) Overview(c *gin.Context) {
	m, err := h.aggregator.Collect(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("dashboard aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to compute dashboard metrics"})
		return
	}
	c.JSON(http.StatusOK, m)
}

type modelStatus struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Version  string  `json:"version"`
	Status   string  `json:"status"`
	Accuracy float64 `json:"accuracy"`
	F1Score  float64 `json:"f1Score"`
}

func (h *Handlers) SystemStatus(c *gin.Context) {
	ctx := c.Request.Context()
	healthy, statuses := h.checks.CheckAll(ctx)

	overall := health.StateOperational
	if !healthy {
		overall = health.StateDown
	} else {
		for _, s := range statuses {
			if s.State == health.StateDegraded {
				overall = health.StateDegraded
				break
			}
		}
	}

	var models []modelStatus
	if h.models != nil {
		deployed, err := h.models.Deployed(ctx)
		if err != nil {
			logging.L(ctx).Error("model status lookup failed", "error", err)
		}
		for _, m := range deployed {
			models = append(models, modelStatus{
				ID:       m.ID,
				Name:     m.Name,
				Version:  m.Version,
				Status:   m.Status,
				Accuracy: m.Accuracy,
				F1Score:  m.F1Score,
			})
		}
	}
	if models == nil {
		models = []modelStatus{}
	}

	resp := gin.H{
		"status":     overall,
		"components": statuses,
		"models":     models,
	}
	if h.backlog != nil {
		resp["pipelineBacklog"] = h.backlog.Backlog()
	}
	c.JSON(http.StatusOK, resp)
}
