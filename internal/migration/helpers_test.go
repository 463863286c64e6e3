package migration

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bankledger/internal/logger"
	"bankledger/internal/schema"
	"bankledger/internal/storage"
	_ "bankledger/internal/storage/sqlite"
)

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

// newLedgerDB opens a private in-memory database with the full schema.
func newLedgerDB(t *testing.T) storage.Repository {
	t.Helper()
	repo := openDB(t)
	if err := schema.NewManager(repo).CreateAll(testContext()); err != nil {
		t.Fatalf("CreateAll() error = %v", err)
	}
	return repo
}

func openDB(t *testing.T) storage.Repository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	repo, err := storage.New(context.Background(), storage.Config{
		Kind: "sqlite",
		DSN:  "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func mustExec(t *testing.T, repo storage.Repository, stmt string, args ...any) {
	t.Helper()
	if err := repo.Exec(testContext(), stmt, args...); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

// seedBase inserts two accounts and three time dimension entries.
func seedBase(t *testing.T, repo storage.Repository) {
	t.Helper()
	mustExec(t, repo, `INSERT INTO customers (customer_id, first_name, last_name) VALUES ('c1', 'Ana', 'Silva'), ('c2', 'Bruno', 'Lima')`)
	mustExec(t, repo, `INSERT INTO accounts (account_id, customer_id, status) VALUES ('a1', 'c1', 'active'), ('a2', 'c2', 'active')`)
	mustExec(t, repo, `INSERT INTO d_time (time_id, action_timestamp) VALUES
		(1, '2024-01-15 10:00:00'),
		(2, '2024-01-15 10:05:00'),
		(3, '2024-02-01 09:00:00')`)
}

func insertTransferIn(t *testing.T, repo storage.Repository, id, account string, amount, requested, completed, status any) {
	t.Helper()
	mustExec(t, repo, `INSERT INTO transfer_ins VALUES (?, ?, ?, ?, ?, ?)`, id, account, amount, requested, completed, status)
}

func insertTransferOut(t *testing.T, repo storage.Repository, id, account string, amount, requested, completed, status any) {
	t.Helper()
	mustExec(t, repo, `INSERT INTO transfer_outs VALUES (?, ?, ?, ?, ?, ?)`, id, account, amount, requested, completed, status)
}

func insertPix(t *testing.T, repo storage.Repository, id, account, direction string, amount, requested, completed, status any) {
	t.Helper()
	mustExec(t, repo, `INSERT INTO pix_movements VALUES (?, ?, ?, ?, ?, ?, ?)`, id, account, direction, amount, requested, completed, status)
}

type unifiedRow struct {
	Account   string
	Type      string
	Amount    string
	Requested string
	Completed string
	Status    string
}

func readUnified(t *testing.T, repo storage.Repository) []unifiedRow {
	t.Helper()
	rows, err := repo.Query(testContext(), `SELECT account_id, transaction_type, amount, requested_at, completed_at, status
		FROM transactions ORDER BY transaction_type, amount`)
	if err != nil {
		t.Fatalf("query transactions: %v", err)
	}
	defer rows.Close()

	var out []unifiedRow
	for rows.Next() {
		var (
			r         unifiedRow
			amount    decimal.Decimal
			req, comp storage.NullTimestamp
			typ       sql.NullString
			status    sql.NullString
		)
		if err := rows.Scan(&r.Account, &typ, &amount, &req, &comp, &status); err != nil {
			t.Fatalf("scan transactions: %v", err)
		}
		r.Type = "<null>"
		if typ.Valid {
			r.Type = typ.String
		}
		r.Amount = amount.String()
		r.Requested = req.String()
		r.Completed = comp.String()
		if status.Valid {
			r.Status = status.String
		} else {
			r.Status = "<null>"
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	return out
}

func countRows(t *testing.T, repo storage.Repository, table string) int64 {
	t.Helper()
	var n int64
	if err := repo.QueryRow(testContext(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func tableExists(t *testing.T, repo storage.Repository, table string) bool {
	t.Helper()
	ok, err := repo.TableExists(testContext(), table)
	if err != nil {
		t.Fatalf("TableExists(%s): %v", table, err)
	}
	return ok
}

func newManager(repo storage.Repository) *schema.Manager {
	return schema.NewManager(repo)
}
