// Package pipeline drives asynchronous risk assessment. Newly created
// transactions are queued on a buffered channel and drained by a worker
// pool that scores them, evaluates detection rules, stores the
// disposition, and raises alerts.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/customer"
	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/metrics"
	"github.com/AdityaK05/AMLGuard/internal/rules"
	"github.com/AdityaK05/AMLGuard/internal/scoring"
	"github.com/AdityaK05/AMLGuard/internal/traces"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
)

// Blend weights for combining the model score with rule scores. A rule
// hit also adds a fixed bump so rule-confirmed activity never scores
// below model-only activity.
const (
	modelWeightWithRules = 0.6
	ruleWeight           = 0.4
	ruleHitBump          = 1.0
	modelWeightAlone     = 0.8
)

// criticalCutoff promotes an alert from high to critical severity.
const criticalCutoff = 8.0

// Notifier pushes assessed transactions to connected dashboard clients.
type Notifier interface {
	TransactionAssessed(t *transaction.Transaction)
}

// Pipeline implements transaction.Sink.
type Pipeline struct {
	store     transaction.Store
	customers customer.Store
	model     *scoring.Model
	engine    *rules.Engine
	alerts    *alert.Service
	notifier  Notifier

	alertThreshold float64
	queue          chan *transaction.Transaction
	workers        int

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Config sizes the pipeline.
type Config struct {
	Workers        int
	QueueSize      int
	AlertThreshold float64
}

func New(store transaction.Store, customers customer.Store, model *scoring.Model, engine *rules.Engine, alerts *alert.Service, notifier Notifier, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = transaction.FlagThreshold
	}
	return &Pipeline{
		store:          store,
		customers:      customers,
		model:          model,
		engine:         engine,
		alerts:         alerts,
		notifier:       notifier,
		alertThreshold: cfg.AlertThreshold,
		queue:          make(chan *transaction.Transaction, cfg.QueueSize),
		workers:        cfg.Workers,
	}
}

// Start launches the worker pool. Workers run until Stop is called and
// the queue drains.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.queue {
				metrics.PipelineQueueDepth.Dec()
				p.process(ctx, t)
			}
		}()
	}
	logging.L(ctx).Info("assessment pipeline started", "workers", p.workers, "queue_size", cap(p.queue))
}

// Enqueue implements transaction.Sink. It never blocks; when the queue
// is full the transaction stays pending and false is returned.
func (p *Pipeline) Enqueue(t *transaction.Transaction) bool {
	select {
	case p.queue <- t:
		metrics.PipelineQueueDepth.Inc()
		return true
	default:
		return false
	}
}

// Backlog reports how many transactions are waiting for assessment.
func (p *Pipeline) Backlog() int {
	return len(p.queue)
}

// Stop drains the queue and waits for in-flight assessments to finish.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Pipeline) process(ctx context.Context, t *transaction.Transaction) {
	start := time.Now()
	ctx, span := traces.StartSpan(ctx, "pipeline.assess",
		traces.TransactionID(t.ID),
		traces.CustomerID(t.CustomerID),
	)
	defer span.End()

	amount, _ := t.Amount.Float64()
	sctx := &scoring.TransactionContext{
		CustomerID: t.CustomerID,
		Amount:     amount,
		Currency:   t.Currency,
		Country:    t.Country,
		Type:       t.Type,
		Timestamp:  t.CreatedAt,
	}
	assessment := p.model.Score(sctx)

	hits := p.engine.Evaluate(p.ruleInput(ctx, t, amount))
	final := blend(assessment.Score, hits)
	status := transaction.StatusForScore(final)

	ruleIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		ruleIDs = append(ruleIDs, h.RuleID)
	}

	if err := p.store.UpdateAssessment(ctx, t.ID, final, ruleIDs, status); err != nil {
		logging.L(ctx).Error("failed to store assessment",
			"transaction_id", t.ID, "error", err)
		metrics.PipelineProcessedTotal.WithLabelValues("error").Inc()
		return
	}
	p.model.Observe(sctx)

	span.SetAttributes(traces.RiskScore(final))
	metrics.PipelineProcessedTotal.WithLabelValues(status).Inc()
	metrics.TransactionsTotal.WithLabelValues(status).Inc()
	metrics.RiskScoreDistribution.Observe(final)
	metrics.PipelineScoreDuration.Observe(time.Since(start).Seconds())

	logging.L(ctx).Info("transaction assessed",
		"transaction_id", t.ID,
		"score", final,
		"status", status,
		"rules_hit", len(ruleIDs),
	)

	assessedAt := time.Now().UTC()
	t.RiskScore = final
	t.RulesHit = ruleIDs
	t.Status = status
	t.AssessedAt = &assessedAt

	if final >= p.alertThreshold {
		p.raiseAlert(ctx, t, hits)
	}
	if p.notifier != nil {
		p.notifier.TransactionAssessed(t)
	}
}

// ruleInput flattens the transaction and its customer context for rule
// evaluation. Customer lookup failures degrade to empty fields rather
// than blocking assessment.
func (p *Pipeline) ruleInput(ctx context.Context, t *transaction.Transaction, amount float64) *rules.Input {
	in := &rules.Input{
		Amount:   amount,
		Currency: t.Currency,
		Country:  t.Country,
		Type:     normalizeType(t.Type),
		Hour:     t.CreatedAt.UTC().Hour(),
	}
	if cust, err := p.customers.GetCustomer(ctx, t.CustomerID); err == nil {
		in.CustomerRisk = cust.RiskRating
		in.KYCStatus = cust.KYCStatus
	}
	vel := p.model.VelocityFor(t.CustomerID, t.CreatedAt)
	in.TxnCount1h = vel.Count1h
	in.TxnCount24h = vel.Count24h
	return in
}

// blend combines the model score with the strongest rule hit. Rules
// carry [0,1] scores; they are projected onto the 0-10 scale here.
func blend(modelScore float64, hits []rules.Hit) float64 {
	maxRule := 0.0
	for _, h := range hits {
		if h.Score > maxRule {
			maxRule = h.Score
		}
	}

	var final float64
	if len(hits) > 0 {
		final = modelWeightWithRules*modelScore + ruleWeight*maxRule*10 + ruleHitBump
	} else {
		final = modelWeightAlone * modelScore
	}
	if final > 10 {
		final = 10
	}
	if final < 0 {
		final = 0
	}
	return math.Round(final*10) / 10
}

func (p *Pipeline) raiseAlert(ctx context.Context, t *transaction.Transaction, hits []rules.Hit) {
	severity := alert.SeverityHigh
	if t.RiskScore >= criticalCutoff {
		severity = alert.SeverityCritical
	}
	alertType := dominantFamily(hits)

	a := &alert.Alert{
		TransactionID: t.ID,
		CustomerID:    t.CustomerID,
		CustomerName:  t.CustomerName,
		Type:          alertType,
		Severity:      severity,
		Title:         alertTitle(alertType),
		Description:   alertDescription(t, hits),
		RiskScore:     t.RiskScore,
	}
	if err := p.alerts.Raise(ctx, a); err != nil {
		logging.L(ctx).Error("failed to raise alert",
			"transaction_id", t.ID, "error", err)
	}
}

// dominantFamily picks the alert type from the highest-scoring rule
// hit. Model-only alerts are anomalies.
func dominantFamily(hits []rules.Hit) string {
	best := ""
	bestScore := -1.0
	for _, h := range hits {
		if h.Score > bestScore {
			bestScore = h.Score
			best = h.RuleID
		}
	}
	switch {
	case strings.HasPrefix(best, "structuring"):
		return alert.TypeStructuring
	case strings.HasPrefix(best, "velocity"), strings.HasPrefix(best, "odd-hours"):
		return alert.TypeVelocity
	case strings.HasPrefix(best, "geo"):
		return alert.TypeGeographic
	default:
		return alert.TypeAnomaly
	}
}

func alertTitle(alertType string) string {
	switch alertType {
	case alert.TypeStructuring:
		return "Potential Structuring Pattern Detected"
	case alert.TypeVelocity:
		return "Unusual Transaction Velocity"
	case alert.TypeGeographic:
		return "High-Risk Geographic Activity"
	default:
		return "Anomalous Transaction Pattern"
	}
}

func alertDescription(t *transaction.Transaction, hits []rules.Hit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("%s of %s %s scored %.1f against the customer's behavioural profile.",
			t.Type, t.Amount.StringFixed(2), t.Currency, t.RiskScore)
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.RuleName)
	}
	return fmt.Sprintf("%s of %s %s matched: %s.",
		t.Type, t.Amount.StringFixed(2), t.Currency, strings.Join(names, ", "))
}

// normalizeType maps display-form transaction types ("Wire Transfer")
// to the snake_case form rules are written against.
func normalizeType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), " ", "_")
}
