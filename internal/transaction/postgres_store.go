package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the transactions table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id             VARCHAR(36) PRIMARY KEY,
			customer_id    VARCHAR(36) NOT NULL,
			customer_name  VARCHAR(255),
			account_id     VARCHAR(36) NOT NULL,
			amount         DECIMAL(18,2) NOT NULL,
			currency       VARCHAR(3) NOT NULL,
			type           VARCHAR(50) NOT NULL,
			description    TEXT,
			country        VARCHAR(2) NOT NULL,
			risk_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
			rules_hit      TEXT[] DEFAULT '{}',
			status         VARCHAR(10) NOT NULL DEFAULT 'pending',
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			assessed_at    TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(customer_id);
		CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
	`)
	return err
}

const txnColumns = `id, customer_id, customer_name, account_id, amount, currency, type,
	description, country, risk_score, rules_hit, status, created_at, assessed_at`

func (p *PostgresStore) Create(ctx context.Context, t *Transaction) error {
	if t.ID == "" {
		t.ID = idgen.WithPrefix("txn_")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txnColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.ID, t.CustomerID, t.CustomerName, t.AccountID, t.Amount, t.Currency, t.Type,
		t.Description, t.Country, t.RiskScore, pq.Array(t.RulesHit), t.Status, t.CreatedAt, t.AssessedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTxn(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}

func (p *PostgresStore) Recent(ctx context.Context, opts RecentOptions) ([]*Transaction, error) {
	opts.Normalize()

	query := `SELECT ` + txnColumns + ` FROM transactions`
	var where []string
	var args []interface{}
	switch opts.RiskLevel {
	case LevelHigh:
		where = append(where, `risk_score >= 7`)
	case LevelMedium:
		where = append(where, `risk_score >= 4 AND risk_score < 7`)
	case LevelLow:
		where = append(where, `risk_score < 4`)
	}
	if opts.Cursor != nil {
		// Keyset continuation: strictly older, or same instant with a later ID
		where = append(where, fmt.Sprintf(
			`(created_at < $%d OR (created_at = $%d AND id > $%d))`,
			len(args)+1, len(args)+1, len(args)+2))
		args = append(args, opts.Cursor.CreatedAt, opts.Cursor.ID)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args)+1)
	args = append(args, opts.Limit)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (p *PostgresStore) UpdateAssessment(ctx context.Context, id string, score float64, rulesHit []string, status string) error {
	switch status {
	case StatusClear, StatusReview, StatusFlagged:
	default:
		return ErrUnknownStatus
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE transactions
		SET risk_score = $2, rules_hit = $3, status = $4, assessed_at = NOW()
		WHERE id = $1
	`, id, score, pq.Array(rulesHit), status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

func (p *PostgresStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&n)
	return n, err
}

func (p *PostgresStore) AverageRiskScore(ctx context.Context) (float64, error) {
	var avg float64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(risk_score), 0) FROM transactions
	`).Scan(&avg)
	return avg, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTxn(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var description sql.NullString
	var assessedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.CustomerID, &t.CustomerName, &t.AccountID, &t.Amount, &t.Currency, &t.Type,
		&description, &t.Country, &t.RiskScore, pq.Array(&t.RulesHit), &t.Status, &t.CreatedAt, &assessedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	if assessedAt.Valid {
		t.AssessedAt = &assessedAt.Time
	}
	return t, nil
}
