package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newRepo(tb testing.TB) *Repository {
	tb.Helper()
	db, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func mustExec(tb testing.TB, r *Repository, stmt string, args ...any) {
	tb.Helper()
	if err := r.Exec(context.Background(), stmt, args...); err != nil {
		tb.Fatalf("exec %q: %v", stmt, err)
	}
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open("  "); err == nil {
		t.Fatalf("Open(blank) error = nil, want non-nil")
	}
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("NewRepository(empty DSN) error = nil, want non-nil")
	}
}

func TestExecBatchCountsAffectedRows(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE t (id TEXT PRIMARY KEY, v INTEGER)`)

	stmt := `INSERT INTO t (id, v) VALUES (?, ?) ON CONFLICT (id) DO NOTHING;`
	n, err := r.ExecBatch(ctx, stmt, [][]any{{"a", 1}, {"b", 2}, {"a", 3}})
	if err != nil {
		t.Fatalf("ExecBatch() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("ExecBatch() affected = %d, want 2 (duplicate ignored)", n)
	}

	n, err = r.ExecBatch(ctx, stmt, [][]any{{"a", 9}, {"c", 4}})
	if err != nil {
		t.Fatalf("ExecBatch() second run error = %v", err)
	}
	if n != 1 {
		t.Fatalf("ExecBatch() second run affected = %d, want 1", n)
	}

	var total int
	if err := r.QueryRow(ctx, `SELECT SUM(v) FROM t`).Scan(&total); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if total != 7 {
		t.Fatalf("SUM(v) = %d, want 7", total)
	}
}

func TestExecBatchRollsBackOnError(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE t (id TEXT PRIMARY KEY, v INTEGER NOT NULL)`)

	_, err := r.ExecBatch(ctx, `INSERT INTO t (id, v) VALUES (?, ?);`, [][]any{{"a", 1}, {"b", nil}})
	if err == nil {
		t.Fatalf("ExecBatch() error = nil, want NOT NULL violation")
	}

	var n int
	if err := r.QueryRow(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows after failed batch = %d, want 0", n)
	}
}

func TestExecBatchEmpty(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	if n, err := r.ExecBatch(context.Background(), "INSERT INTO nowhere VALUES (?);", nil); err != nil || n != 0 {
		t.Fatalf("ExecBatch(nil rows) = (%d, %v), want (0, nil)", n, err)
	}
	if _, err := r.ExecBatch(context.Background(), " ", [][]any{{1}}); err == nil {
		t.Fatalf("ExecBatch(blank stmt) error = nil, want non-nil")
	}
}

func TestTableExists(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	mustExec(t, r, `CREATE TABLE present (id INTEGER)`)
	mustExec(t, r, `CREATE VIEW present_view AS SELECT id FROM present`)

	tests := map[string]bool{
		"present":      true,
		"present_view": false,
		"absent":       false,
	}
	for name, want := range tests {
		got, err := r.TableExists(ctx, name)
		if err != nil {
			t.Fatalf("TableExists(%q) error = %v", name, err)
		}
		if got != want {
			t.Errorf("TableExists(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestExecBlankIsNoOpAndErrorsWrap(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	if err := r.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("Exec(blank) error = %v", err)
	}
	err := r.Exec(context.Background(), "SELEC nonsense")
	if err == nil || !strings.HasPrefix(err.Error(), "sqlite: exec:") {
		t.Fatalf("Exec(bad SQL) error = %v, want sqlite: exec: prefix", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatalf("Exec(bad SQL) error does not wrap the driver error")
	}
}

func TestForeignKeysPragma(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: "file:fkpragma?mode=memory", ForeignKeys: true})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer closeFn()

	var on int
	if err := r.QueryRow(ctx, "PRAGMA foreign_keys;").Scan(&on); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if on != 1 {
		t.Fatalf("foreign_keys = %d, want 1", on)
	}
}
