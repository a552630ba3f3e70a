// Package cases tracks compliance investigations opened from alerts.
package cases

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("case not found")
	ErrInvalidStatus     = errors.New("invalid case status")
	ErrInvalidPriority   = errors.New("invalid case priority")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Statuses
const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusClosed        = "closed"
)

// Priorities
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Case is a compliance investigation, usually opened from an alert
type Case struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AlertID     string     `json:"alertId,omitempty"`
	CustomerID  string     `json:"customerId,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
}

// ListOptions filters case listings
type ListOptions struct {
	Limit    int
	Status   string
	Priority string
}

// Normalize applies the listing defaults: limit 10, cap 100.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// Update describes a mutation to a case. Nil fields are left unchanged.
type Update struct {
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssignedTo  *string `json:"assignedTo"`
	Description *string `json:"description"`
}

// Store persists cases
type Store interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, error)
	List(ctx context.Context, opts ListOptions) ([]*Case, error)
	Apply(ctx context.Context, id string, upd Update) (*Case, error)
	CountOpen(ctx context.Context) (int, error)
	CountOpenUrgent(ctx context.Context) (int, error)
}

func validStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusClosed:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal:
		return true
	}
	return false
}
