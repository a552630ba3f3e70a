package customer

import (
	"context"
	"database/sql"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed customer store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the customer and account tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS customers (
			id            VARCHAR(36) PRIMARY KEY,
			full_name     VARCHAR(255) NOT NULL,
			email         VARCHAR(255),
			country       VARCHAR(2) NOT NULL,
			risk_rating   VARCHAR(10) NOT NULL,
			kyc_status    VARCHAR(10) NOT NULL,
			onboarded_at  TIMESTAMPTZ DEFAULT NOW(),
			created_at    TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS accounts (
			id           VARCHAR(36) PRIMARY KEY,
			customer_id  VARCHAR(36) NOT NULL REFERENCES customers(id),
			number       VARCHAR(20) NOT NULL,
			type         VARCHAR(20) NOT NULL,
			currency     VARCHAR(3) NOT NULL,
			balance      DECIMAL(18,2) NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_customer ON accounts(customer_id);
	`)
	return err
}

func (p *PostgresStore) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.ID == "" {
		c.ID = idgen.WithPrefix("cus_")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, email, country, risk_rating, kyc_status, onboarded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.FullName, c.Email, c.Country, c.RiskRating, c.KYCStatus, c.OnboardedAt, c.CreatedAt)
	return err
}

func (p *PostgresStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	c := &Customer{}
	var email sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, country, risk_rating, kyc_status, onboarded_at, created_at
		FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.FullName, &email, &c.Country, &c.RiskRating, &c.KYCStatus, &c.OnboardedAt, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	return c, nil
}

func (p *PostgresStore) ListCustomers(ctx context.Context, limit, offset int) ([]*Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, full_name, email, country, risk_rating, kyc_status, onboarded_at, created_at
		FROM customers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		c := &Customer{}
		var email sql.NullString
		if err := rows.Scan(&c.ID, &c.FullName, &email, &c.Country, &c.RiskRating, &c.KYCStatus, &c.OnboardedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (p *PostgresStore) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

func (p *PostgresStore) CreateAccount(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = idgen.WithPrefix("acc_")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, customer_id, number, type, currency, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.CustomerID, a.Number, a.Type, a.Currency, a.Balance, a.CreatedAt)
	return err
}

func (p *PostgresStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	a := &Account{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, customer_id, number, type, currency, balance, created_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.CustomerID, &a.Number, &a.Type, &a.Currency, &a.Balance, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	return a, err
}

func (p *PostgresStore) ListAccountsByCustomer(ctx context.Context, customerID string) ([]*Account, error) {
	if _, err := p.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, customer_id, number, type, currency, balance, created_at
		FROM accounts WHERE customer_id = $1
		ORDER BY created_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a := &Account{}
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Number, &a.Type, &a.Currency, &a.Balance, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
