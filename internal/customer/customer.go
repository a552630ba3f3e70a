// Package customer holds the monitored customers and their accounts.
//
// Customers carry a KYC risk rating assigned at onboarding; accounts are
// referenced by transactions through masked numbers only.
package customer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrAccountNotFound  = errors.New("account not found")
)

// KYC risk ratings
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// KYC statuses
const (
	KYCApproved = "approved"
	KYCPending  = "pending"
	KYCRejected = "rejected"
)

// Customer is a monitored bank customer
type Customer struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	RiskRating  string    `json:"riskRating"`
	KYCStatus   string    `json:"kycStatus"`
	OnboardedAt time.Time `json:"onboardedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Account is a customer bank account. Number holds only the masked form.
type Account struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Number     string          `json:"number"` // masked, e.g. "****3f2a"
	Type       string          `json:"type"`   // "checking", "savings"
	Currency   string          `json:"currency"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store persists customers and accounts
type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error)
	CountCustomers(ctx context.Context) (int, error)

	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	ListAccountsByCustomer(ctx context.Context, customerID string) ([]*Account, error)
}
