package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewMemoryStore creates a new in-memory alert store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alerts: make(map[string]*Alert)}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, a *Alert) error {
	if a.Severity != "" && !validSeverity(a.Severity) {
		return ErrInvalidSeverity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = idgen.WithPrefix("alr_")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = StatusOpen
	}
	m.alerts[a.ID] = copyAlert(a)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAlert(a), nil
}

func (m *MemoryStore) Recent(ctx context.Context, opts RecentOptions) ([]*Alert, error) {
	opts.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if opts.Severity != "" && a.Severity != opts.Severity {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		result = append(result, copyAlert(a))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (m *MemoryStore) Apply(ctx context.Context, id string, upd Update) (*Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, ErrInvalidStatus
		}
		if terminal(a.Status) && !terminal(*upd.Status) {
			return nil, ErrInvalidTransition
		}
		a.Status = *upd.Status
		if terminal(a.Status) {
			now := time.Now()
			a.ResolvedAt = &now
		} else {
			a.ResolvedAt = nil
		}
	}
	if upd.AssignedTo != nil {
		a.AssignedTo = *upd.AssignedTo
	}
	return copyAlert(a), nil
}

func (m *MemoryStore) CountByStatus(ctx context.Context, status string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.alerts {
		if a.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, a := range m.alerts {
		if !a.CreatedAt.Before(from) && a.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func copyAlert(a *Alert) *Alert {
	cp := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
