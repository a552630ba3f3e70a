package cases

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the cases table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cases (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			priority TEXT NOT NULL DEFAULT 'normal',
			alert_id TEXT NOT NULL DEFAULT '',
			customer_id TEXT NOT NULL DEFAULT '',
			assigned_to TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			closed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
		CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at DESC);
	`)
	return err
}

const caseColumns = `id, title, description, status, priority, alert_id, customer_id, assigned_to, created_at, updated_at, closed_at`

func (s *PostgresStore) Create(ctx context.Context, c *Case) error {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.Title, c.Description, c.Status, c.Priority, c.AlertID, c.CustomerID, c.AssignedTo, c.CreatedAt, c.UpdatedAt, c.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	return scanCase(row)
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]*Case, error) {
	opts.Normalize()

	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		args = append(args, opts.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if opts.Priority != "" {
		args = append(args, opts.Priority)
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := `SELECT ` + caseColumns + ` FROM cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Apply(ctx context.Context, id string, upd Update) (*Case, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCase(row)
	if err != nil {
		return nil, err
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

	_, err = tx.ExecContext(ctx, `
		UPDATE cases SET status = $2, priority = $3, assigned_to = $4, description = $5, updated_at = $6, closed_at = $7
		WHERE id = $1
	`, c.ID, c.Status, c.Priority, c.AssignedTo, c.Description, c.UpdatedAt, c.ClosedAt)
	if err != nil {
		return nil, fmt.Errorf("update case: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE status <> 'closed'`).Scan(&n)
	return n, err
}

func (s *PostgresStore) CountOpenUrgent(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases WHERE status <> 'closed' AND priority = 'urgent'`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*Case, error) {
	var (
		c        Case
		closedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Status, &c.Priority, &c.AlertID, &c.CustomerID, &c.AssignedTo, &c.CreatedAt, &c.UpdatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		c.ClosedAt = &t
	}
	return &c, nil
}
