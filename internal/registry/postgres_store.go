package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore persists models in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the models table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'shadow',
			accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			precision_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			recall DOUBLE PRECISION NOT NULL DEFAULT 0,
			f1_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			deployed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (name, version)
		);
	`)
	return err
}

const modelColumns = `id, name, version, type, status, accuracy, precision_score, recall, f1_score, deployed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, m *Model) error {
	if m.ID == "" {
		m.ID = idgen.WithPrefix("mdl_")
	}
	if m.Status == "" {
		m.Status = StatusShadow
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt
	if m.Status == StatusDeployed && m.DeployedAt == nil {
		m.DeployedAt = &now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO models (`+modelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, m.ID, m.Name, m.Version, m.Type, m.Status, m.Accuracy, m.Precision, m.Recall, m.F1Score, m.DeployedAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrModelExists
		}
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Model, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE id = $1`, id)
	return scanModel(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Model, error) {
	return s.query(ctx, `SELECT `+modelColumns+` FROM models ORDER BY name, version DESC`)
}

func (s *PostgresStore) Deployed(ctx context.Context) ([]*Model, error) {
	return s.query(ctx, `SELECT `+modelColumns+` FROM models WHERE status = 'deployed' ORDER BY name`)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id, status string) (*Model, error) {
	if !validStatus(status) {
		return nil, errors.New("registry: unknown model status")
	}
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		UPDATE models
		SET status = $2,
		    updated_at = $3,
		    deployed_at = CASE WHEN $2 = 'deployed' AND deployed_at IS NULL THEN $3 ELSE deployed_at END
		WHERE id = $1
		RETURNING `+modelColumns+`
	`, id, status, now)
	return scanModel(row)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*Model, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*Model, error) {
	var (
		m          Model
		deployedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Name, &m.Version, &m.Type, &m.Status, &m.Accuracy, &m.Precision, &m.Recall, &m.F1Score, &deployedAt, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, err
	}
	if deployedAt.Valid {
		t := deployedAt.Time.UTC()
		m.DeployedAt = &t
	}
	return &m, nil
}
