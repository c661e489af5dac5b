package refresh

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore is the pgx-backed [Store] implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a [PostgresStore] on the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save writes a new refresh-session record.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO refresh_sessions (id, subject, email, refresh_token, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Subject, rec.Email, rec.RefreshToken, rec.IssuedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert refresh session: %w", err)
	}

	return nil
}

// Get returns the record for id, expired or not.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, subject, email, refresh_token, issued_at, expires_at
		FROM refresh_sessions
		WHERE id = $1
	`

	rec := &Record{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Subject, &rec.Email, &rec.RefreshToken, &rec.IssuedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select refresh session: %w", err)
	}

	return rec, nil
}

// Migrate applies the embedded schema migrations with goose. It takes a
// database/sql handle because goose drives migrations through *sql.DB;
// callers typically open one via the pgx stdlib driver just for this step.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
