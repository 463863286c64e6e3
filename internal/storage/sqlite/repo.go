// Package sqlite implements storage.Repository on top of the pure-Go
// modernc.org/sqlite driver. Batches run inside a single transaction with one
// prepared statement; SQLite has no bulk-load API, but a transaction keeps
// throughput acceptable for ledger-sized inputs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:ledger.db"
	//   "file:test?mode=memory&cache=shared"
	//   ":memory:"
	DSN string

	// ForeignKeys runs PRAGMA foreign_keys = ON after connecting.
	ForeignKeys bool
}

// Repository is a SQLite-backed implementation of storage.Repository.
//
// The pool is pinned to one connection: an in-memory database lives and dies
// with its connection, and PRAGMAs are per connection. Callers must therefore
// drain and close *sql.Rows before issuing the next statement.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// Open opens the database behind dsn with the single-connection pool the
// repository relies on.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// New wraps an already opened database.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NewRepository opens and pings the database and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if cfg.ForeignKeys {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
		}
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// Exec executes a statement that returns no rows. Blank statements are a
// no-op.
func (r *Repository) Exec(ctx context.Context, query string, args ...any) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Query runs a statement returning rows.
func (r *Repository) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	return rows, nil
}

// QueryRow runs a statement expected to return at most one row. Errors are
// deferred to Scan.
func (r *Repository) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// ExecBatch executes stmt once per row in a single transaction. Any failure
// rolls the whole batch back and reports zero rows.
func (r *Repository) ExecBatch(ctx context.Context, stmtSQL string, rows [][]any) (int64, error) {
	if strings.TrimSpace(stmtSQL) == "" {
		return 0, fmt.Errorf("sqlite: ExecBatch: statement must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	var affected int64
	for i, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: exec row %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return affected, nil
}

// TableExists reports whether sqlite_master lists a table with this name.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?;", table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: table exists %s: %w", table, err)
	}
	return n > 0, nil
}
