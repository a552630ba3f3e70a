package customer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu        sync.RWMutex
	customers map[string]*Customer
	accounts  map[string]*Account
	byOwner   map[string][]string // customerID -> account IDs
}

// NewMemoryStore creates a new in-memory customer store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers: make(map[string]*Customer),
		accounts:  make(map[string]*Account),
		byOwner:   make(map[string][]string),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateCustomer(ctx context.Context, c *Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == "" {
		c.ID = idgen.WithPrefix("cus_")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	customers := make([]*Customer, 0, len(m.customers))
	for _, c := range m.customers {
		cp := *c
		customers = append(customers, &cp)
	}

	// Newest first
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CreatedAt.After(customers[j].CreatedAt)
	})

	if offset >= len(customers) {
		return []*Customer{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(customers) {
		end = len(customers)
	}
	return customers[offset:end], nil
}

func (m *MemoryStore) CountCustomers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.customers), nil
}

func (m *MemoryStore) CreateAccount(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[a.CustomerID]; !ok {
		return ErrCustomerNotFound
	}
	if a.ID == "" {
		a.ID = idgen.WithPrefix("acc_")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	m.accounts[a.ID] = &cp
	m.byOwner[a.CustomerID] = append(m.byOwner[a.CustomerID], a.ID)
	return nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ListAccountsByCustomer(ctx context.Context, customerID string) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.customers[customerID]; !ok {
		return nil, ErrCustomerNotFound
	}

	ids := m.byOwner[customerID]
	accounts := make([]*Account, 0, len(ids))
	for _, id := range ids {
		cp := *m.accounts[id]
		accounts = append(accounts, &cp)
	}
	return accounts, nil
}
