// Package server wires the stores, pipeline, and HTTP surface together.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/auth"
	"github.com/AdityaK05/AMLGuard/internal/cases"
	"github.com/AdityaK05/AMLGuard/internal/config"
	"github.com/AdityaK05/AMLGuard/internal/customer"
	"github.com/AdityaK05/AMLGuard/internal/dashboard"
	"github.com/AdityaK05/AMLGuard/internal/health"
	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/metrics"
	"github.com/AdityaK05/AMLGuard/internal/pipeline"
	"github.com/AdityaK05/AMLGuard/internal/ratelimit"
	"github.com/AdityaK05/AMLGuard/internal/realtime"
	"github.com/AdityaK05/AMLGuard/internal/registry"
	"github.com/AdityaK05/AMLGuard/internal/rules"
	"github.com/AdityaK05/AMLGuard/internal/scoring"
	"github.com/AdityaK05/AMLGuard/internal/security"
	"github.com/AdityaK05/AMLGuard/internal/seed"
	"github.com/AdityaK05/AMLGuard/internal/traces"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
	"github.com/AdityaK05/AMLGuard/internal/validation"
	"github.com/AdityaK05/AMLGuard/internal/webhooks"
)

// stores groups the persistence layer behind one struct so memory and
// Postgres wiring stay symmetric.
type stores struct {
	users        auth.Store
	customers    customer.Store
	transactions transaction.Store
	alerts       alert.Store
	cases        cases.Store
	models       registry.Store
	webhooks     webhooks.Store
}

// alertNotifiers fans a raised alert out to every listener.
type alertNotifiers []alert.Notifier

func (ns alertNotifiers) AlertRaised(a *alert.Alert) {
	for _, n := range ns {
		n.AlertRaised(a)
	}
}

// assessNotifiers fans an assessed transaction out to every listener.
type assessNotifiers []pipeline.Notifier

func (ns assessNotifiers) TransactionAssessed(t *transaction.Transaction) {
	for _, n := range ns {
		n.TransactionAssessed(t)
	}
}

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg    *config.Config
	stores stores

	authSvc     *auth.Service
	alertSvc    *alert.Service
	txnSvc      *transaction.Service
	model       *scoring.Model
	rulesEngine *rules.Engine
	rulesLoader *rules.Loader
	pipeline    *pipeline.Pipeline
	hub         *realtime.Hub
	dispatcher  *webhooks.Dispatcher
	checks      *health.Registry

	rateLimiter    *ratelimit.Limiter
	db             *sql.DB // nil if using in-memory
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	tracesShutdown func(context.Context) error
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := logging.WithLogger(context.Background(), s.logger)

	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	s.tracesShutdown = shutdownTraces

	if err := s.setupStores(ctx); err != nil {
		return nil, err
	}

	// Core services
	s.authSvc = auth.NewService(s.stores.users, cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)

	s.hub = realtime.NewHub(logging.Component(s.logger, "realtime"))
	webhookLogger := logging.Component(s.logger, "webhooks")
	s.dispatcher = webhooks.NewDispatcher(s.stores.webhooks, webhookLogger)
	emitter := webhooks.NewEmitter(s.dispatcher, webhookLogger)
	s.alertSvc = alert.NewService(s.stores.alerts, alertNotifiers{s.hub, emitter})

	s.model = scoring.NewModel()
	s.rulesEngine = rules.NewEngine()
	s.rulesLoader = rules.NewLoader(cfg.RulesDir, s.rulesEngine)
	if _, err := s.rulesLoader.Load(ctx); err != nil {
		if errors.Is(err, rules.ErrNoRules) {
			s.logger.Warn("no detection rules loaded", "dir", cfg.RulesDir)
		} else {
			return nil, fmt.Errorf("load detection rules: %w", err)
		}
	}

	s.pipeline = pipeline.New(
		s.stores.transactions,
		s.stores.customers,
		s.model,
		s.rulesEngine,
		s.alertSvc,
		assessNotifiers{s.hub, emitter},
		pipeline.Config{
			Workers:        cfg.PipelineWorkers,
			QueueSize:      cfg.PipelineQueue,
			AlertThreshold: cfg.AlertThreshold,
		},
	)
	s.txnSvc = transaction.NewService(s.stores.transactions, s.stores.customers, s.pipeline)

	if cfg.SeedDemoData {
		if err := seed.Run(ctx, seed.Stores{
			Users:        s.stores.users,
			Customers:    s.stores.customers,
			Transactions: s.stores.transactions,
			Alerts:       s.stores.alerts,
			Cases:        s.stores.cases,
			Models:       s.stores.models,
		}); err != nil {
			return nil, fmt.Errorf("seed demo data: %w", err)
		}
	}

	s.registerHealthChecks()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)
	return s, nil
}

// setupStores picks PostgreSQL when DATABASE_URL is set, otherwise
// in-memory stores.
func (s *Server) setupStores(ctx context.Context) error {
	if s.cfg.DatabaseURL == "" {
		s.stores = stores{
			users:        auth.NewMemoryStore(),
			customers:    customer.NewMemoryStore(),
			transactions: transaction.NewMemoryStore(),
			alerts:       alert.NewMemoryStore(),
			cases:        cases.NewMemoryStore(),
			models:       registry.NewMemoryStore(),
			webhooks:     webhooks.NewMemoryStore(),
		}
		s.logger.Info("using in-memory storage")
		return nil
	}

	db, err := sql.Open("postgres", s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	users := auth.NewPostgresStore(db)
	customers := customer.NewPostgresStore(db)
	transactions := transaction.NewPostgresStore(db)
	alerts := alert.NewPostgresStore(db)
	caseStore := cases.NewPostgresStore(db)
	models := registry.NewPostgresStore(db)
	webhookStore := webhooks.NewPostgresStore(db)

	type migrator interface {
		Migrate(ctx context.Context) error
	}
	for _, m := range []migrator{users, customers, transactions, alerts, caseStore, models, webhookStore} {
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	s.stores = stores{
		users:        users,
		customers:    customers,
		transactions: transactions,
		alerts:       alerts,
		cases:        caseStore,
		models:       models,
		webhooks:     webhookStore,
	}
	s.logger.Info("using PostgreSQL storage", "url", maskDSN(s.cfg.DatabaseURL))

	metrics.StartDBStatsCollector(ctx, db, 15*time.Second)
	return nil
}

func (s *Server) registerHealthChecks() {
	s.checks.Register("database", func(ctx context.Context) health.Status {
		if s.db == nil {
			return health.Operational("database")
		}
		if err := s.db.PingContext(ctx); err != nil {
			return health.Down("database", err.Error())
		}
		return health.Operational("database")
	})

	s.checks.Register("pipeline", func(ctx context.Context) health.Status {
		backlog := s.pipeline.Backlog()
		if s.cfg.PipelineQueue > 0 && backlog >= s.cfg.PipelineQueue*9/10 {
			return health.Degraded("pipeline", fmt.Sprintf("assessment backlog at %d", backlog))
		}
		return health.Operational("pipeline")
	})

	s.checks.Register("rules", func(ctx context.Context) health.Status {
		if len(s.rulesEngine.Rules()) == 0 {
			return health.Degraded("rules", "no detection rules loaded")
		}
		return health.Operational("rules")
	})
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(splitOrigins(s.cfg.AllowedOrigins)))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limiterCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPS > 0 {
		limiterCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	}
	s.rateLimiter = ratelimit.New(limiterCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Operational endpoints, no auth
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Realtime feed. Origin checking happens in the upgrader; browsers
	// cannot attach Authorization headers to WebSocket requests.
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	api := s.router.Group("/api")

	// Public: login only
	auth.NewHandler(s.authSvc).RegisterPublicRoutes(api)

	// Everything else requires a valid token
	protected := api.Group("")
	protected.Use(auth.Middleware(s.authSvc))

	auth.NewHandler(s.authSvc).RegisterProtectedRoutes(protected)
	transaction.NewHandler(s.txnSvc).RegisterRoutes(protected)
	alert.NewHandler(s.alertSvc).RegisterRoutes(protected)
	cases.NewHandlers(s.stores.cases).RegisterRoutes(protected)
	customer.NewHandler(s.stores.customers).RegisterRoutes(protected)
	registry.NewHandlers(s.stores.models).RegisterRoutes(protected)

	rulesHandlers := rules.NewHandlers(s.rulesEngine, s.rulesLoader)
	rulesHandlers.RegisterRoutes(protected)

	aggregator := dashboard.NewAggregator(s.stores.transactions, s.stores.alerts, s.stores.cases)
	dashboard.NewHandlers(aggregator, s.checks, s.stores.models, s.pipeline).RegisterRoutes(protected)

	// Admin-only operations
	admin := protected.Group("")
	admin.Use(auth.RequireRole(auth.RoleAdmin))
	rulesHandlers.RegisterAdminRoutes(admin)
	registry.NewHandlers(s.stores.models).RegisterAdminRoutes(admin)
	webhooks.NewHandler(s.stores.webhooks).RegisterAdminRoutes(admin)
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"healthy":    healthy,
		"components": statuses,
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() || !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server and background workers, then blocks until
// a shutdown signal arrives or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(logging.WithLogger(ctx, s.logger))
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.hub.Run(runCtx)
	s.pipeline.Start(runCtx)

	if err := s.rulesLoader.Watch(runCtx); err != nil {
		s.logger.Error("failed to start rules watcher", "error", err)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown drains in-flight work and closes everything in dependency order.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown error", "error", err)
		}
	}

	// Drain the assessment queue before stopping its downstream consumers.
	s.pipeline.Stop()
	s.logger.Info("assessment pipeline drained")

	// Let in-flight webhook deliveries finish before closing the store.
	s.dispatcher.Wait()

	// Cancel the hub and rules watcher goroutines.
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}
	if err := s.rulesLoader.Close(); err != nil {
		s.logger.Error("rules watcher close error", "error", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.tracesShutdown != nil {
		if err := s.tracesShutdown(ctx); err != nil {
			s.logger.Error("traces shutdown error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}
