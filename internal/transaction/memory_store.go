package transaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*Transaction
}

// NewMemoryStore creates a new in-memory transaction store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*Transaction),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = idgen.WithPrefix("txn_")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	m.transactions[t.ID] = copyTxn(t)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTxn(t), nil
}

func (m *MemoryStore) Recent(ctx context.Context, opts RecentOptions) ([]*Transaction, error) {
	opts.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		if opts.RiskLevel != "" && t.RiskLevel() != opts.RiskLevel {
			continue
		}
		if opts.Cursor != nil && !opts.Cursor.Before(t.CreatedAt, t.ID) {
			continue
		}
		result = append(result, copyTxn(t))
	}

	// Newest first; ID as a stable tiebreak for equal timestamps
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

func (m *MemoryStore) UpdateAssessment(ctx context.Context, id string, score float64, rulesHit []string, status string) error {
	switch status {
	case StatusClear, StatusReview, StatusFlagged:
	default:
		return ErrUnknownStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	t.RiskScore = score
	t.RulesHit = append([]string(nil), rulesHit...)
	t.Status = status
	t.AssessedAt = &now
	return nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions), nil
}

func (m *MemoryStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, t := range m.transactions {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

// AverageRiskScore returns the mean score across all transactions,
// or 0 when the store is empty.
func (m *MemoryStore) AverageRiskScore(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.transactions) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, t := range m.transactions {
		sum += t.RiskScore
	}
	return sum / float64(len(m.transactions)), nil
}

func copyTxn(t *Transaction) *Transaction {
	cp := *t
	cp.RulesHit = append([]string(nil), t.RulesHit...)
	if t.AssessedAt != nil {
		ts := *t.AssessedAt
		cp.AssessedAt = &ts
	}
	return &cp
}
