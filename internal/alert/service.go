package alert

import (
	"context"

	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/metrics"
)

// Notifier pushes raised alerts to connected dashboard clients.
type Notifier interface {
	AlertRaised(a *Alert)
}

// Service provides alert operations
type Service struct {
	store    Store
	notifier Notifier
}

// NewService creates a new alert service
func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Raise records a new alert and notifies dashboard clients.
func (s *Service) Raise(ctx context.Context, a *Alert) error {
	if err := s.store.Create(ctx, a); err != nil {
		return err
	}

	metrics.AlertsTotal.WithLabelValues(a.Severity, a.Type).Inc()
	logging.L(ctx).Info("alert raised",
		"alert_id", a.ID,
		"transaction_id", a.TransactionID,
		"severity", a.Severity,
		"type", a.Type,
		"risk_score", a.RiskScore,
	)

	if s.notifier != nil {
		s.notifier.AlertRaised(a)
	}
	return nil
}

// Get returns an alert by ID
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.store.Get(ctx, id)
}

// Recent returns the latest alerts, newest first
func (s *Service) Recent(ctx context.Context, opts RecentOptions) ([]*Alert, error) {
	return s.store.Recent(ctx, opts)
}

// Apply mutates an alert's status or assignment
func (s *Service) Apply(ctx context.Context, id string, upd Update) (*Alert, error) {
	return s.store.Apply(ctx, id, upd)
}
