package rules

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/logging"
)

// Handlers exposes the rule set over HTTP.
type Handlers struct {
	engine *Engine
	loader *Loader
}

func NewHandlers(engine *Engine, loader *Loader) *Handlers {
	return &Handlers{engine: engine, loader: loader}
}

// RegisterRoutes mounts the read endpoint. Reload is registered
// separately so the server can wrap it in the admin check.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rules", h.List)
}

// RegisterAdminRoutes mounts the mutating endpoints.
func (h *Handlers) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/rules/reload", h.Reload)
}

type ruleView struct {
	Rule
	Stats RuleStats `json:"stats"`
}

func (h *Handlers) List(c *gin.Context) {
	active := h.engine.Rules()
	stats := h.engine.Stats()

	out := make([]ruleView, 0, len(active))
	for _, r := range active {
		out = append(out, ruleView{Rule: r, Stats: stats[r.ID]})
	}
	c.JSON(http.StatusOK, gin.H{
		"rules":    out,
		"count":    len(out),
		"loadedAt": h.engine.LoadedAt(),
	})
}

func (h *Handlers) Reload(c *gin.Context) {
	n, err := h.loader.Load(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrNoRules) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no_rules", "message": "no rule files found"})
			return
		}
		logging.L(c.Request.Context()).Error("manual rules reload failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "reload_failed", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reloaded": true, "rules": n})
}
