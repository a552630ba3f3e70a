// Package alert holds suspicious-activity alerts raised by the scoring
// pipeline and worked by analysts.
package alert

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("alert not found")
	ErrInvalidSeverity   = errors.New("invalid alert severity")
	ErrInvalidStatus     = errors.New("invalid alert status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Alert types, keyed by the dominant rule family that fired
const (
	TypeStructuring = "structuring"
	TypeVelocity    = "velocity"
	TypeGeographic  = "geographic"
	TypeAnomaly     = "anomaly"
)

// Severities
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Statuses
const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
	StatusDismissed     = "dismissed"
)

// Alert is a suspicious-activity alert
type Alert struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transactionId"`
	CustomerID    string     `json:"customerId"`
	CustomerName  string     `json:"customerName"`
	Type          string     `json:"type"`
	Severity      string     `json:"severity"`
	Status        string     `json:"status"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	RiskScore     float64    `json:"riskScore"`
	AssignedTo    string     `json:"assignedTo,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ResolvedAt    *time.Time `json:"resolvedAt,omitempty"`
}

// RecentOptions filters recent alert listings
type RecentOptions struct {
	Limit    int
	Severity string
	Status   string
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

// Update describes a mutation an analyst can apply to an alert.
// Nil fields are left unchanged.
type Update struct {
	Status     *string `json:"status"`
	AssignedTo *string `json:"assignedTo"`
}

// Store persists alerts
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	Recent(ctx context.Context, opts RecentOptions) ([]*Alert, error)
	Apply(ctx context.Context, id string, upd Update) (*Alert, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
}

func validSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func validStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// terminal reports whether a status closes the alert.
func terminal(status string) bool {
	return status == StatusResolved || status == StatusDismissed
}
