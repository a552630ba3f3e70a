package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/idgen"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
)

var (
	webhookEmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "amlguard",
		Subsystem: "webhook",
		Name:      "emit_total",
		Help:      "Total webhook emit attempts by event type.",
	}, []string{"event_type"})

	webhookEmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "amlguard",
		Subsystem: "webhook",
		Name:      "emit_errors_total",
		Help:      "Total webhook emit failures by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(webhookEmitTotal, webhookEmitErrors)
}

// Emitter translates domain events into webhook dispatches. All methods
// are fire-and-forget: errors are logged but never returned, so a broken
// endpoint cannot stall the pipeline.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(eventType EventType, data map[string]any) {
	if e == nil || e.d == nil {
		return
	}
	webhookEmitTotal.WithLabelValues(string(eventType)).Inc()
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.Dispatch(ctx, event); err != nil {
		webhookEmitErrors.WithLabelValues(string(eventType)).Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "error", err)
	}
}

// AlertRaised emits an alert.raised event.
func (e *Emitter) AlertRaised(a *alert.Alert) {
	e.emit(EventAlertRaised, map[string]any{
		"alertId":       a.ID,
		"transactionId": a.TransactionID,
		"customerId":    a.CustomerID,
		"type":          a.Type,
		"severity":      a.Severity,
		"title":         a.Title,
		"riskScore":     a.RiskScore,
	})
}

// TransactionAssessed emits a transaction.flagged event for flagged
// transactions and ignores the rest.
func (e *Emitter) TransactionAssessed(t *transaction.Transaction) {
	if t.Status != transaction.StatusFlagged {
		return
	}
	e.emit(EventTransactionFlagged, map[string]any{
		"transactionId": t.ID,
		"customerId":    t.CustomerID,
		"amount":        t.Amount.String(),
		"currency":      t.Currency,
		"country":       t.Country,
		"riskScore":     t.RiskScore,
		"rulesHit":      t.RulesHit,
	})
}
