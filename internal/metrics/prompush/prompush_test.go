package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"bankledger/internal/metrics"
)

func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	s := m.GetSummary()
	if s == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	return s.GetSampleCount(), s.GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend("job", ""); err == nil || b != nil {
		t.Fatalf("NewBackend(no URL) = (%v, %v), want (nil, error)", b, err)
	}

	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if b.jobName != "bankledger" {
		t.Fatalf("jobName = %q, want default bankledger", b.jobName)
	}
	if b.phaseCounter == nil || b.phaseDuration == nil || b.rowCounter == nil || b.batchCounter == nil {
		t.Fatalf("collectors not initialised: %+v", b)
	}
}

func TestIncCounterRoutesByName(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("ledger", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter(metrics.PhaseTotal, 1, metrics.Labels{"phase": "validate", "status": "failure"})
	b.IncCounter(metrics.RowsTotal, 4, metrics.Labels{"source": "pix_movements", "kind": "written"})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"source": "pix_movements", "kind": "written"})
	b.IncCounter(metrics.BatchesTotal, 2, metrics.Labels{"source": "transfer_ins"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"source": "transfer_ins"})

	if got := readCounterValue(t, b.phaseCounter.WithLabelValues("validate", "failure")); got != 1 {
		t.Errorf("phase counter = %v, want 1", got)
	}
	if got := readCounterValue(t, b.rowCounter.WithLabelValues("pix_movements", "written")); got != 5 {
		t.Errorf("row counter = %v, want 5", got)
	}
	if got := readCounterValue(t, b.batchCounter.WithLabelValues("transfer_ins")); got != 2 {
		t.Errorf("batch counter = %v, want 2 (unknown name ignored)", got)
	}
}

func TestZeroValueBackendIsSafe(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.PhaseTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{})
	b.ObserveHistogram(metrics.PhaseDuration, 1, metrics.Labels{})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("ledger", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	lbls := metrics.Labels{"phase": "migrate_source", "status": "success"}
	b.ObserveHistogram(metrics.PhaseDuration, 1.5, lbls)
	b.ObserveHistogram("other_metric", 9, lbls)

	count, sum := readSummaryCountSum(t, b.phaseDuration, "migrate_source", "success")
	if count != 1 || sum != 1.5 {
		t.Fatalf("summary = (%d, %v), want (1, 1.5)", count, sum)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method string
		path   string
		body   string
	}
	reqCh := make(chan pushed, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushed{method: r.Method, path: r.URL.Path, body: string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("ledger-run", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.PhaseTotal, 1, metrics.Labels{"phase": "validate", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got pushed
	select {
	case got = <-reqCh:
	default:
		t.Fatalf("Flush() did not send a request to the Pushgateway")
	}
	if got.method != http.MethodPut {
		t.Errorf("push method = %q, want PUT", got.method)
	}
	if !strings.Contains(got.path, "/job/ledger-run") {
		t.Errorf("push path = %q, want job grouping key", got.path)
	}
	if got.body == "" {
		t.Errorf("push body is empty")
	}
}
