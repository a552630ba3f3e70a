package cases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// MemoryStore keeps cases in memory. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	cases map[string]*Case
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cases: make(map[string]*Case)}
}

func (s *MemoryStore) Create(ctx context.Context, c *Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = idgen.WithPrefix("case_")
	}
	if c.Status == "" {
		c.Status = StatusOpen
	}
	if c.Priority == "" {
		c.Priority = PriorityNormal
	}
	if !validStatus(c.Status) {
		return ErrInvalidStatus
	}
	if !validPriority(c.Priority) {
		return ErrInvalidPriority
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	s.cases[c.ID] = copyCase(c)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCase(c), nil
}

func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]*Case, error) {
	opts.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Case, 0, len(s.cases))
	for _, c := range s.cases {
		if opts.Status != "" && c.Status != opts.Status {
			continue
		}
		if opts.Priority != "" && c.Priority != opts.Priority {
			continue
		}
		out = append(out, copyCase(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Apply(ctx context.Context, id string, upd Update) (*Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, ErrInvalidStatus
		}
		if c.Status == StatusClosed && *upd.Status != StatusClosed {
			return nil, ErrInvalidTransition
		}
		c.Status = *upd.Status
		if c.Status == StatusClosed {
			if c.ClosedAt == nil {
				now := time.Now().UTC()
				c.ClosedAt = &now
			}
		} else {
			c.ClosedAt = nil
		}
	}
	if upd.Priority != nil {
		if !validPriority(*upd.Priority) {
			return nil, ErrInvalidPriority
		}
		c.Priority = *upd.Priority
	}
	if upd.AssignedTo != nil {
		c.AssignedTo = *upd.AssignedTo
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	c.UpdatedAt = time.Now().UTC()

	return copyCase(c), nil
}

func (s *MemoryStore) CountOpen(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.cases {
		if c.Status != StatusClosed {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountOpenUrgent(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.cases {
		if c.Status != StatusClosed && c.Priority == PriorityUrgent {
			n++
		}
	}
	return n, nil
}

func copyCase(c *Case) *Case {
	dup := *c
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		dup.ClosedAt = &t
	}
	return &dup
}
