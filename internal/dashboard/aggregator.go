// Package dashboard computes the headline numbers the compliance
// dashboard shows. Everything is derived from the live stores; nothing
// here is cached or precomputed.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/alert"
	"github.com/AdityaK05/AMLGuard/internal/cases"
	"github.com/AdityaK05/AMLGuard/internal/transaction"
)

// Metrics is the dashboard overview payload. Change strings compare
// the trailing 24 hours against the 24 hours before that.
type Metrics struct {
	ActiveAlerts       int     `json:"activeAlerts"`
	ActiveAlertsChange string  `json:"activeAlertsChange"`
	DailyTransactions  int     `json:"dailyTransactions"`
	DailyTxnChange     string  `json:"dailyTransactionsChange"`
	AvgRiskScore       float64 `json:"avgRiskScore"`
	OpenCases          int     `json:"openCases"`
	UrgentCases        int     `json:"urgentCases"`
	GeneratedAt        string  `json:"generatedAt"`
}

// Aggregator derives dashboard metrics from the stores.
type Aggregator struct {
	txns   transaction.Store
	alerts alert.Store
	cases  cases.Store

	now func() time.Time // injectable for tests
}

func NewAggregator(txns transaction.Store, alerts alert.Store, caseStore cases.Store) *Aggregator {
	return &Aggregator{txns: txns, alerts: alerts, cases: caseStore, now: time.Now}
}

// Collect computes the current dashboard metrics.
func (a *Aggregator) Collect(ctx context.Context) (*Metrics, error) {
	now := a.now().UTC()
	dayAgo := now.Add(-24 * time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	activeAlerts, err := a.alerts.CountByStatus(ctx, alert.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("count open alerts: %w", err)
	}
	investigating, err := a.alerts.CountByStatus(ctx, alert.StatusInvestigating)
	if err != nil {
		return nil, fmt.Errorf("count investigating alerts: %w", err)
	}
	activeAlerts += investigating

	alertsToday, err := a.alerts.CountBetween(ctx, dayAgo, now)
	if err != nil {
		return nil, fmt.Errorf("count alerts today: %w", err)
	}
	alertsYesterday, err := a.alerts.CountBetween(ctx, twoDaysAgo, dayAgo)
	if err != nil {
		return nil, fmt.Errorf("count alerts yesterday: %w", err)
	}

	txnsToday, err := a.txns.CountBetween(ctx, dayAgo, now)
	if err != nil {
		return nil, fmt.Errorf("count transactions today: %w", err)
	}
	txnsYesterday, err := a.txns.CountBetween(ctx, twoDaysAgo, dayAgo)
	if err != nil {
		return nil, fmt.Errorf("count transactions yesterday: %w", err)
	}

	avgRisk, err := a.txns.AverageRiskScore(ctx)
	if err != nil {
		return nil, fmt.Errorf("average risk score: %w", err)
	}

	openCases, err := a.cases.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open cases: %w", err)
	}
	urgentCases, err := a.cases.CountOpenUrgent(ctx)
	if err != nil {
		return nil, fmt.Errorf("count urgent cases: %w", err)
	}

	return &Metrics{
		ActiveAlerts:       activeAlerts,
		ActiveAlertsChange: changeString(alertsToday, alertsYesterday),
		DailyTransactions:  txnsToday,
		DailyTxnChange:     changeString(txnsToday, txnsYesterday),
		AvgRiskScore:       math.Round(avgRisk*10) / 10,
		OpenCases:          openCases,
		UrgentCases:        urgentCases,
		GeneratedAt:        now.Format(time.RFC3339),
	}, nil
}

// changeString renders a signed percentage like "+12%" or "-3%". A zero
// baseline with activity reads "+100%"; no activity either side is "0%".
func changeString(current, previous int) string {
	if previous == 0 {
		if current == 0 {
			return "0%"
		}
		return "+100%"
	}
	pct := int(math.Round(float64(current-previous) / float64(previous) * 100))
	if pct > 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
