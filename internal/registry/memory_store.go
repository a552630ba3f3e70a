package registry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// MemoryStore keeps models in memory. Used in development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{models: make(map[string]*Model)}
}

func (s *MemoryStore) Create(ctx context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.models {
		if existing.Name == m.Name && existing.Version == m.Version {
			return ErrModelExists
		}
	}
	if m.ID == "" {
		m.ID = idgen.WithPrefix("mdl_")
	}
	if m.Status == "" {
		m.Status = StatusShadow
	}
	if !validStatus(m.Status) {
		return errors.New("registry: unknown model status")
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt
	if m.Status == StatusDeployed && m.DeployedAt == nil {
		m.DeployedAt = &now
	}

	s.models[m.ID] = copyModel(m)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrModelNotFound
	}
	return copyModel(m), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, copyModel(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Version > out[j].Version
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) Deployed(ctx context.Context) ([]*Model, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.Status == StatusDeployed {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id, status string) (*Model, error) {
	if !validStatus(status) {
		return nil, errors.New("registry: unknown model status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrModelNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	if status == StatusDeployed && m.DeployedAt == nil {
		now := m.UpdatedAt
		m.DeployedAt = &now
	}
	return copyModel(m), nil
}

func copyModel(m *Model) *Model {
	dup := *m
	if m.DeployedAt != nil {
		t := *m.DeployedAt
		dup.DeployedAt = &t
	}
	return &dup
}
