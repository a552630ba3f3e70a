package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AdityaK05/AMLGuard/internal/customer"
	"github.com/AdityaK05/AMLGuard/internal/logging"
	"github.com/AdityaK05/AMLGuard/internal/pagination"
	"github.com/AdityaK05/AMLGuard/internal/traces"
	"github.com/AdityaK05/AMLGuard/internal/validation"
)

// Sink receives newly created transactions for asynchronous assessment.
// Enqueue must not block; it reports whether the transaction was accepted.
type Sink interface {
	Enqueue(t *Transaction) bool
}

// Service provides transaction operations
type Service struct {
	store     Store
	customers customer.Store
	sink      Sink
}

// NewService creates a new transaction service
func NewService(store Store, customers customer.Store, sink Sink) *Service {
	return &Service{store: store, customers: customers, sink: sink}
}

// CreateInput is the input for recording a transaction
type CreateInput struct {
	CustomerID  string `json:"customerId"`
	AccountID   string `json:"accountId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

// Create validates and records a transaction, then hands it to the
// scoring pipeline. The transaction is returned in its pending state;
// the assessment lands asynchronously.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transaction, error) {
	ctx, span := traces.StartSpan(ctx, "transaction.create", traces.CustomerID(in.CustomerID))
	defer span.End()

	if errs := validation.Validate(
		validation.Required("customerId", in.CustomerID),
		validation.Required("accountId", in.AccountID),
		validation.Required("amount", in.Amount),
		validation.ValidAmount("amount", in.Amount),
		validation.Required("currency", in.Currency),
		validation.ValidCurrency("currency", in.Currency),
		validation.Required("type", in.Type),
		validation.ValidCountry("country", in.Country),
		validation.MaxLength("description", in.Description, 1000),
	); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, errs.Error())
	}

	cust, err := s.customers.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown customer", ErrInvalidInput)
	}
	if _, err := s.customers.GetAccount(ctx, in.AccountID); err != nil {
		return nil, fmt.Errorf("%w: unknown account", ErrInvalidInput)
	}

	amount, _ := decimal.NewFromString(in.Amount)
	country := in.Country
	if country == "" {
		country = cust.Country
	}

	t := &Transaction{
		CustomerID:   cust.ID,
		CustomerName: cust.FullName,
		AccountID:    in.AccountID,
		Amount:       amount,
		Currency:     in.Currency,
		Type:         in.Type,
		Description:  validation.SanitizeString(in.Description, 1000),
		Country:      country,
		Status:       StatusPending,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	if s.sink != nil && !s.sink.Enqueue(t) {
		// Queue full: the transaction stays pending and is visible to
		// analysts, it just missed the fast assessment path.
		logging.L(ctx).Warn("assessment queue full", "transaction_id", t.ID)
	}

	return t, nil
}

// Get returns a transaction by ID
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	return s.store.Get(ctx, id)
}

// Recent returns the latest transactions, newest first
func (s *Service) Recent(ctx context.Context, opts RecentOptions) ([]*Transaction, error) {
	return s.store.Recent(ctx, opts)
}

// Feed page sizes. The cap stays under the store listing cap so the
// one-item look-ahead is never clamped away.
const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// RecentPage returns one page of the transaction feed plus an opaque
// cursor for the next page.
func (s *Service) RecentPage(ctx context.Context, opts RecentOptions) ([]*Transaction, string, bool, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultPageSize
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	limit := opts.Limit
	opts.Limit = limit + 1

	txns, err := s.store.Recent(ctx, opts)
	if err != nil {
		return nil, "", false, err
	}
	page, next, more := pagination.ComputePage(txns, limit, func(t *Transaction) (time.Time, string) {
		return t.CreatedAt, t.ID
	})
	return page, next, more, nil
}
