package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bankledger/internal/catalog"
	"bankledger/internal/storage/sqlite"
)

func TestDefinitionsMatchCatalog(t *testing.T) {
	t.Parallel()

	var defs []string
	for _, group := range [][]string{
		{catalog.Country, catalog.State, catalog.City, catalog.Customers, catalog.Accounts},
		{catalog.Week, catalog.Weekday, catalog.Month, catalog.Year, catalog.Time},
		catalog.LegacyTables(),
		{catalog.Transactions},
	} {
		defs = append(defs, group...)
	}

	for _, name := range defs {
		def, ok := Definition(name)
		if !ok {
			t.Fatalf("Definition(%q) missing", name)
		}
		shape := catalog.MustLookup(name)
		if diff := cmp.Diff(shape.Columns, def.ColumnNames()); diff != "" {
			t.Errorf("%s columns mismatch (-catalog +ddl):\n%s", name, diff)
		}
	}

	if _, ok := Definition(catalog.TopPerformingAccounts); ok {
		t.Fatalf("Definition() returned a table for a view name")
	}
}

type recordingExecer struct {
	stmts  []string
	failOn string
}

func (r *recordingExecer) Exec(_ context.Context, q string, _ ...any) error {
	r.stmts = append(r.stmts, q)
	if r.failOn != "" && strings.Contains(q, r.failOn) {
		return errors.New("boom")
	}
	return nil
}

func tableOf(stmt string) string {
	rest := strings.TrimPrefix(stmt, `CREATE TABLE IF NOT EXISTS "`)
	return rest[:strings.IndexByte(rest, '"')]
}

func TestCreateAllOrder(t *testing.T) {
	t.Parallel()

	rec := &recordingExecer{}
	if err := NewManager(rec).CreateAll(context.Background()); err != nil {
		t.Fatalf("CreateAll() error = %v", err)
	}

	got := make([]string, len(rec.stmts))
	for i, s := range rec.stmts {
		got[i] = tableOf(s)
	}
	want := []string{
		"country", "state", "city", "customers", "accounts",
		"d_week", "d_weekday", "d_month", "d_year", "d_time",
		"transfer_ins", "transfer_outs", "pix_movements",
		"transactions",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CreateAll() order mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateAllStopsOnError(t *testing.T) {
	t.Parallel()

	rec := &recordingExecer{failOn: `"d_time"`}
	err := NewManager(rec).CreateAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "schema: legacy") {
		t.Fatalf("CreateAll() error = %v, want legacy group failure", err)
	}
	for _, s := range rec.stmts {
		if strings.Contains(s, `"transactions"`) {
			t.Fatalf("unified schema created after legacy failure")
		}
	}
}

func TestCreateAllIdempotentOnSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, closeFn, err := sqlite.NewRepository(ctx, sqlite.Config{DSN: "file:schema_idem?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer closeFn()

	m := NewManager(repo)
	for i := 0; i < 2; i++ {
		if err := m.CreateAll(ctx); err != nil {
			t.Fatalf("CreateAll() run %d error = %v", i+1, err)
		}
	}

	var n int
	err = repo.QueryRow(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'transactions';").Scan(&n)
	if err != nil {
		t.Fatalf("count tables: %v", err)
	}
	if n != 1 {
		t.Fatalf("transactions tables = %d, want 1", n)
	}
	for _, name := range catalog.LegacyTables() {
		ok, err := repo.TableExists(ctx, name)
		if err != nil || !ok {
			t.Fatalf("TableExists(%s) = (%v, %v), want true", name, ok, err)
		}
	}
}
