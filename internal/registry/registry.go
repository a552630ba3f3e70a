// Package registry tracks the machine-learning models backing the
// scoring pipeline and their evaluation metrics.
package registry

import (
	"context"
	"errors"
	"time"
)

var (
	ErrModelNotFound = errors.New("registry: model not found")
	ErrModelExists   = errors.New("registry: model version already registered")
)

// Model statuses
const (
	StatusDeployed = "deployed"
	StatusShadow   = "shadow" // scoring but not acted on
	StatusRetired  = "retired"
)

// Model types
const (
	TypeGradientBoosting = "gradient_boosting"
	TypeIsolationForest  = "isolation_forest"
)

// Model is a registered scoring model with its offline evaluation
// metrics. Metrics are fractions in [0,1].
type Model struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Accuracy   float64    `json:"accuracy"`
	Precision  float64    `json:"precision"`
	Recall     float64    `json:"recall"`
	F1Score    float64    `json:"f1Score"`
	DeployedAt *time.Time `json:"deployedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Store persists registered models.
type Store interface {
	Create(ctx context.Context, m *Model) error
	Get(ctx context.Context, id string) (*Model, error)
	List(ctx context.Context) ([]*Model, error)
	Deployed(ctx context.Context) ([]*Model, error)
	SetStatus(ctx context.Context, id, status string) (*Model, error)
}

func validStatus(s string) bool {
	switch s {
	case StatusDeployed, StatusShadow, StatusRetired:
		return true
	}
	return false
}
