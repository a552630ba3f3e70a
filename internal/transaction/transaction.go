// Package transaction holds monitored transactions and their risk dispositions.
//
// Every transaction enters as "pending" and receives a disposition once the
// scoring pipeline has assessed it. The stored status is authoritative; the
// coarse risk level (low/medium/high) is always derived from the score.
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AdityaK05/AMLGuard/internal/pagination"
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidInput  = errors.New("invalid transaction input")
	ErrUnknownStatus = errors.New("unknown transaction status")
)

// Dispositions
const (
	StatusPending = "pending" // awaiting assessment
	StatusClear   = "clear"
	StatusReview  = "review"
	StatusFlagged = "flagged"
)

// Risk levels derived from the 0-10 score
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Score thresholds. A score of 6 flags the transaction, 4 sends it to
// manual review, anything below clears.
const (
	FlagThreshold   = 6.0
	ReviewThreshold = 4.0
	HighRiskCutoff  = 7.0
)

// Transaction is a monitored money movement
type Transaction struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"` // cached for display
	AccountID    string          `json:"accountId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Type         string          `json:"type"` // "Wire Transfer", "ATM Withdrawal", ...
	Description  string          `json:"description,omitempty"`
	Country      string          `json:"country"`
	RiskScore    float64         `json:"riskScore"`
	RulesHit     []string        `json:"rulesHit"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	AssessedAt   *time.Time      `json:"assessedAt,omitempty"`
}

// RiskLevel buckets the score into low (<4), medium (4-7), or high (>=7).
func (t *Transaction) RiskLevel() string {
	return LevelForScore(t.RiskScore)
}

// LevelForScore maps a 0-10 risk score to a coarse level.
func LevelForScore(score float64) string {
	switch {
	case score >= HighRiskCutoff:
		return LevelHigh
	case score >= ReviewThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// StatusForScore maps a final risk score to a disposition.
func StatusForScore(score float64) string {
	switch {
	case score >= FlagThreshold:
		return StatusFlagged
	case score >= ReviewThreshold:
		return StatusReview
	default:
		return StatusClear
	}
}

// RecentOptions filters recent transaction listings
type RecentOptions struct {
	Limit     int
	RiskLevel string // "", "low", "medium", "high"
	Cursor    *pagination.Cursor
}

// Normalize applies the listing defaults: limit 10, cap 100.
func (o *RecentOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// Store persists transactions
type Store interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	Recent(ctx context.Context, opts RecentOptions) ([]*Transaction, error)
	UpdateAssessment(ctx context.Context, id string, score float64, rulesHit []string, status string) error
	Count(ctx context.Context) (int, error)
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	AverageRiskScore(ctx context.Context) (float64, error)
}
