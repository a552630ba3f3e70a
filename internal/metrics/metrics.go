// Package metrics provides Prometheus instrumentation for the AMLGuard backend.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "amlguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// TransactionsTotal counts ingested transactions by disposition.
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "transactions_total",
			Help:      "Total transactions ingested by disposition.",
		},
		[]string{"status"},
	)

	// AlertsTotal counts raised alerts by severity and type.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "alerts_total",
			Help:      "Total alerts raised by severity and alert type.",
		},
		[]string{"severity", "type"},
	)

	// RuleHitsTotal counts detection rule matches by rule ID.
	RuleHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "rule_hits_total",
			Help:      "Total detection rule matches by rule ID.",
		},
		[]string{"rule"},
	)

	// LoginAttemptsTotal counts login attempts by result.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "login_attempts_total",
			Help:      "Total login attempts by result (success, failure).",
		},
		[]string{"result"},
	)

	// PipelineQueueDepth tracks transactions waiting for risk assessment.
	PipelineQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "amlguard",
			Name:      "pipeline_queue_depth",
			Help:      "Number of transactions queued for risk assessment.",
		},
	)

	// PipelineProcessedTotal counts pipeline assessments by outcome.
	PipelineProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "amlguard",
			Name:      "pipeline_processed_total",
			Help:      "Total pipeline assessments by outcome (alerted, cleared, dropped).",
		},
		[]string{"outcome"},
	)

	// PipelineScoreDuration observes end-to-end scoring latency.
	PipelineScoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "amlguard",
			Name:      "pipeline_score_duration_seconds",
			Help:      "Time to score a transaction through features, model, and rules.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	// RiskScoreDistribution observes final risk scores on a 0-10 scale.
	RiskScoreDistribution = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "amlguard",
			Name:      "risk_score",
			Help:      "Distribution of final transaction risk scores.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "amlguard",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// RulesLoaded tracks the number of enabled detection rules.
	RulesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "amlguard",
			Name:      "rules_loaded",
			Help:      "Number of enabled detection rules currently loaded.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// DBWaitCount tracks the total number of connections waited for.
	DBWaitCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "db_wait_count_total",
		Help: "Total number of connections waited for.",
	})
	// DBWaitDuration tracks total time waited for connections.
	DBWaitDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "db_wait_duration_seconds_total",
		Help: "Total time waited for connections in seconds.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "amlguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		TransactionsTotal,
		AlertsTotal,
		RuleHitsTotal,
		LoginAttemptsTotal,
		PipelineQueueDepth,
		PipelineProcessedTotal,
		PipelineScoreDuration,
		RiskScoreDistribution,
		ActiveWebSocketClients,
		RulesLoaded,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		DBWaitCount,
		DBWaitDuration,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			DBWaitCount.Set(float64(stats.WaitCount))
			DBWaitDuration.Set(stats.WaitDuration.Seconds())
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
