// Package postgres implements core.Store on a single PostgreSQL table.
//
// Rows form an adjacency list: each entry points at its parent, and leaf
// rows carry their content. There is no uniqueness constraint on
// (parent_id, kind, name), matching the other stores: creating a container
// never checks for an existing one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

// TableNames holds prefixed table names.
type TableNames struct {
	Entries string
}

// NewTableNames creates table names with the given prefix (e.g. "dev_").
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Entries: fmt.Sprintf("%sentries", prefix),
	}
}

// CreateConnectionPool creates a pgx pool and checks connectivity.
// Port 6543 (transaction pooler) switches to describe caching since the
// pooler does not support prepared statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the entries table and its lookup index if missing.
func EnsureSchema(ctx context.Context, db DBTX, tables *TableNames) error {
	stmts := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			parent_id  TEXT NOT NULL DEFAULT '',
			kind       TEXT NOT NULL CHECK (kind IN ('container', 'leaf')),
			name       TEXT NOT NULL,
			data       BYTEA,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, tables.Entries),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_lookup_idx ON %s (parent_id, kind, name)`,
			tables.Entries, tables.Entries),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// IsPgNoRowsError checks if error is a "no rows" error.
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// pgErrorCode returns the SQLSTATE of err, or "" if it is not a server error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
