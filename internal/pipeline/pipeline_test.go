package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"bankledger/internal/catalog"
	"bankledger/internal/config"
	"bankledger/internal/logger"
	"bankledger/internal/metrics"
	"bankledger/internal/reports"
	_ "bankledger/internal/storage/sqlite"
)

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func writeCSV(t *testing.T, dir, table, body string) {
	t.Helper()
	d := filepath.Join(dir, table)
	if err := os.MkdirAll(d, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d, table+".csv"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// seedDataDir writes a small but complete legacy extract.
func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, dir, "customers", "customer_id,first_name,last_name\nc1,Ana,Silva\nc2,Bruno,Lima\n")
	writeCSV(t, dir, "accounts", "account_id,customer_id,status\na1,c1,active\na2,c2,active\n")
	writeCSV(t, dir, "d_time", "time_id,action_timestamp\n1,2024-01-15 10:00:00\n2,2024-02-01 09:00:00\n")
	writeCSV(t, dir, "transfer_ins", "id,account_id,amount,transaction_requested_at,transaction_completed_at,status\nt1,a1,100,1,1,completed\n")
	writeCSV(t, dir, "transfer_outs", "id,account_id,amount,transaction_requested_at,transaction_completed_at,status\no1,a1,40,2,2,None\n")
	writeCSV(t, dir, "pix_movements", "id,account_id,in_or_out,pix_amount,pix_requested_at,pix_completed_at,status\np1,a2,IN,15,2,None,completed\n")
	return dir
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DSN = "file:" + filepath.Join(t.TempDir(), "ledger.db")
	cfg.Ingest.DataDir = seedDataDir(t)
	return cfg
}

func TestRunFullPipeline(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	res, err := Run(testContext(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff(config.AllSteps, res.Steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if len(res.Loaded) != 6 {
		t.Errorf("loaded tables = %d, want 6", len(res.Loaded))
	}
	if res.Migration == nil || len(res.Migration.Retired) != 3 || res.Migration.Orphaned != 0 {
		t.Fatalf("migration report = %+v", res.Migration)
	}

	repo, err := Open(testContext(), cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	got, err := reports.MonthlyBalances(testContext(), repo, "")
	if err != nil {
		t.Fatalf("MonthlyBalances() error = %v", err)
	}
	want := []reports.MonthlyBalance{
		{AccountID: "a1", Month: "2024-01", NetBalance: decimal.NewFromInt(100), RunningBalance: decimal.NewFromInt(100)},
		{AccountID: "a1", Month: "2024-02", NetBalance: decimal.NewFromInt(-40), RunningBalance: decimal.NewFromInt(60)},
		{AccountID: "a2", Month: "2024-02", NetBalance: decimal.NewFromInt(15), RunningBalance: decimal.NewFromInt(15)},
	}
	eq := cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got, eq); diff != "" {
		t.Fatalf("monthly balances mismatch (-want +got):\n%s", diff)
	}
}

// TestRunTwiceIsStable reruns the whole pipeline on the same database.
// Keyed tables skip reloaded rows and migrated ids are derived, so the
// unified table does not grow.
func TestRunTwiceIsStable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	if _, err := Run(testContext(), cfg); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := Run(testContext(), cfg); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	repo, err := Open(testContext(), cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	var n int64
	if err := repo.QueryRow(testContext(), "SELECT COUNT(*) FROM "+catalog.Transactions).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("transactions after rerun = %d, want 3", n)
	}
}

func TestRunSelectedSteps(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	res, err := Run(testContext(), cfg, config.StepSchema)
	if err != nil {
		t.Fatalf("Run(schema) error = %v", err)
	}
	if res.Migration != nil || res.Loaded != nil {
		t.Fatalf("schema-only run produced %+v", res)
	}
}

func TestRunRejectsUnknownStep(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	if _, err := Run(testContext(), cfg, config.StepSchema, "extract"); err == nil || !strings.Contains(err.Error(), `"extract"`) {
		t.Fatalf("Run() error = %v, want unknown step", err)
	}
}

func TestRunStopsAtFailingStep(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Ingest.DataDir = filepath.Join(t.TempDir(), "missing")
	res, err := Run(testContext(), cfg)
	if err == nil {
		t.Fatal("Run() error = nil, want missing data dir")
	}
	if diff := cmp.Diff([]string{config.StepSchema}, res.Steps); diff != "" {
		t.Fatalf("completed steps mismatch (-want +got):\n%s", diff)
	}
}

// Metrics tests swap the global backend and do not run in parallel.
func TestSetupMetricsPushgatewayFlushes(t *testing.T) {
	t.Cleanup(metrics.Reset)

	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/metrics/job/ledger-test") {
			puts.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	flush := SetupMetrics(testContext(), "ledger-test", config.Metrics{Backend: "pushgateway", PushgatewayURL: srv.URL})
	metrics.RecordRows("ledger-test", "transfer_ins", "read", 2)
	flush()
	if puts.Load() != 1 {
		t.Fatalf("pushgateway PUTs = %d, want 1", puts.Load())
	}
}

func TestSetupMetricsFallsBackToNop(t *testing.T) {
	t.Cleanup(metrics.Reset)

	for _, m := range []config.Metrics{
		{Backend: "none"},
		{Backend: "pushgateway"},
		{Backend: "datadog"},
		{Backend: "graphite"},
	} {
		flush := SetupMetrics(testContext(), "j", m)
		flush()
	}
}
