package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/metrics"
)

// Handler provides HTTP endpoints for authentication
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterPublicRoutes sets up routes that do not require a token.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// RegisterProtectedRoutes sets up routes behind the auth middleware.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
	r.POST("/auth/logout", h.Logout)
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "username and password are required",
		})
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logging.L(c.Request.Context()).Warn("login failed", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Invalid credentials",
		})
		return
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"tokenType": "bearer",
		"user":      user,
	})
}

// Me handles GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	claims, ok := GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "missing_token",
			"message": "Authentication required.",
		})
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "User no longer exists",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout handles POST /api/auth/logout
// Tokens are stateless, so logout is an acknowledgement; clients drop the token.
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
