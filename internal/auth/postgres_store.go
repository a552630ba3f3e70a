package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/AdityaK05/AMLGuard/internal/idgen"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the users table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id             VARCHAR(36) PRIMARY KEY,
			username       VARCHAR(100) NOT NULL UNIQUE,
			password_hash  VARCHAR(100) NOT NULL,
			full_name      VARCHAR(255) NOT NULL,
			email          VARCHAR(255),
			role           VARCHAR(20) NOT NULL,
			permissions    TEXT[] DEFAULT '{}',
			last_login     TIMESTAMPTZ,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = idgen.WithPrefix("usr_")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, full_name, email, role, permissions, last_login, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Username, user.PasswordHash, user.FullName, user.Email,
		user.Role, pq.Array(user.Permissions), user.LastLogin, user.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrUserExists
	}
	return err
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, email, role, permissions, last_login, created_at
		FROM users WHERE id = $1
	`, id))
}

func (p *PostgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, email, role, permissions, last_login, created_at
		FROM users WHERE LOWER(username) = LOWER($1)
	`, username))
}

func (p *PostgresStore) Update(ctx context.Context, user *User) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE users SET
			password_hash = $2, full_name = $3, email = $4, role = $5,
			permissions = $6, last_login = $7
		WHERE id = $1
	`, user.ID, user.PasswordHash, user.FullName, user.Email, user.Role,
		pq.Array(user.Permissions), user.LastLogin)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (p *PostgresStore) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	var email sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &email,
		&user.Role, pq.Array(&user.Permissions), &lastLogin, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}
