// Package storage defines the backend-agnostic contract the ledger uses to
// talk to its embedded database, plus a small factory so callers pick a
// backend by kind without importing driver packages.
//
// Backends register themselves from init(); importing the backend package
// (usually as a blank import in cmd/) makes its kind available to New.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	// Kind names the registered backend, e.g. "sqlite".
	Kind string

	// DSN is passed to the backend unchanged, e.g. "file:ledger.db" or
	// "file:test?mode=memory&cache=shared".
	DSN string

	// ForeignKeys turns on engine-level foreign key enforcement. The ledger
	// checks account references itself in the migration Validate phase, so
	// this defaults to off and legacy data may carry dangling time references.
	ForeignKeys bool
}

// Repository is the only surface the rest of the code sees. A Repository
// owns a single connection for its lifetime; Close releases it.
type Repository interface {
	// Exec runs a statement that returns no rows (DDL, DROP, single INSERT).
	Exec(ctx context.Context, query string, args ...any) error

	// Query runs a statement returning rows. Callers close the rows.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRow runs a statement expected to return at most one row.
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// ExecBatch prepares stmt once and executes it for every row inside a
	// single transaction. It returns the summed rows-affected count; rows
	// skipped by ON CONFLICT DO NOTHING do not count.
	ExecBatch(ctx context.Context, stmt string, rows [][]any) (int64, error)

	// TableExists reports whether a base table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// Close releases the underlying connection.
	Close()
}

// Factory constructs a Repository for a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
