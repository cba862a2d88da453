// Package postgres implements the repository interfaces on PostgreSQL via pgx.
//
// It mirrors repository/sqlite query for query; the differences are the
// placeholder syntax, native booleans/timestamps, and how unique violations
// are detected (SQLSTATE 23505 plus the constraint name).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/repository"
)

var _ repository.Store = (*DB)(nil)

const uniqueViolation = "23505"

// DB is a Postgres-backed repository.Store.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to dsn, verifies the connection and applies the schema.
func New(ctx context.Context, dsn string, maxConns int32) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing config: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	is_staff      BOOLEAN NOT NULL DEFAULT FALSE,
	is_superuser  BOOLEAN NOT NULL DEFAULT FALSE,
	github_id     BIGINT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_github_id_key UNIQUE (github_id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower
	ON users (LOWER(email)) WHERE email <> '';

CREATE TABLE IF NOT EXISTS countries (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT teams_name_key UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	job        TEXT NOT NULL,
	gender     TEXT NOT NULL,
	country_id BIGINT NOT NULL REFERENCES countries(id),
	skills     TEXT NOT NULL DEFAULT '',
	team_id    TEXT REFERENCES teams(id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_team_id ON profiles(team_id);
`

func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// querier is implemented by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueField maps a 23505 error to the logical field that clashed.
func uniqueField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return "username", true
	case "idx_users_email_lower":
		return "email", true
	case "users_github_id_key":
		return "github_id", true
	case "teams_name_key":
		return "name", true
	default:
		return "", true
	}
}

func conflictOr(err error, resource, value, op string) error {
	if field, ok := uniqueField(err); ok {
		return apperror.Conflict(resource, field, value)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
