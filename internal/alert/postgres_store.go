package alert

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed alert store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the alerts table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id              VARCHAR(36) PRIMARY KEY,
			transaction_id  VARCHAR(36) NOT NULL,
			customer_id     VARCHAR(36) NOT NULL,
			customer_name   VARCHAR(255),
			type            VARCHAR(20) NOT NULL,
			severity        VARCHAR(10) NOT NULL,
			status          VARCHAR(15) NOT NULL DEFAULT 'open',
			title           VARCHAR(255) NOT NULL,
			description     TEXT,
			risk_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
			assigned_to     VARCHAR(36),
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			resolved_at     TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
		CREATE INDEX IF NOT EXISTS idx_alerts_severity ON alerts(severity);
	`)
	return err
}

const alertColumns = `id, transaction_id, customer_id, customer_name, type, severity,
	status, title, description, risk_score, assigned_to, created_at, resolved_at`

func (p *PostgresStore) Create(ctx context.Context, a *Alert) error {
	if a.Severity != "" && !validSeverity(a.Severity) {
		return ErrInvalidSeverity
	}
	if a.ID == "" {
		a.ID = idgen.WithPrefix("alr_")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = StatusOpen
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.TransactionID, a.CustomerID, a.CustomerName, a.Type, a.Severity,
		a.Status, a.Title, a.Description, a.RiskScore, nullable(a.AssignedTo), a.CreatedAt, a.ResolvedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Alert, error) {
	a, err := scanAlert(p.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (p *PostgresStore) Recent(ctx context.Context, opts RecentOptions) ([]*Alert, error) {
	opts.Normalize()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []interface{}{}
	if opts.Severity != "" {
		args = append(args, opts.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (p *PostgresStore) Apply(ctx context.Context, id string, upd Update) (*Alert, error) {
	current, err := p.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		if !validStatus(*upd.Status) {
			return nil, ErrInvalidStatus
		}
		if terminal(current.Status) && !terminal(*upd.Status) {
			return nil, ErrInvalidTransition
		}
		current.Status = *upd.Status
		if terminal(current.Status) {
			now := time.Now()
			current.ResolvedAt = &now
		} else {
			current.ResolvedAt = nil
		}
	}
	if upd.AssignedTo != nil {
		current.AssignedTo = *upd.AssignedTo
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE alerts SET status = $2, assigned_to = $3, resolved_at = $4 WHERE id = $1
	`, id, current.Status, nullable(current.AssignedTo), current.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (p *PostgresStore) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE status = $1`, status).Scan(&n)
	return n, err
}

func (p *PostgresStore) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	a := &Alert{}
	var description, assignedTo sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.TransactionID, &a.CustomerID, &a.CustomerName, &a.Type, &a.Severity,
		&a.Status, &a.Title, &description, &a.RiskScore, &assignedTo, &a.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.AssignedTo = assignedTo.String
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return a, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
