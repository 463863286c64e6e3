package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	histograms []histCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

// install swaps the global backend for the duration of a test. Tests that
// use it do not run in parallel.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(Reset)
	return fb
}

func TestRecordPhase(t *testing.T) {
	fb := install(t)

	RecordPhase("ledger", "ensure_target", nil, 2*time.Second)
	RecordPhase("ledger", "validate", errors.New("orphans"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls = %d counters, %d histograms; want 2 and 2", len(fb.counters), len(fb.histograms))
	}

	c0 := fb.counters[0]
	if c0.name != PhaseTotal || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want %s delta 1", c0, PhaseTotal)
	}
	if c0.labels["phase"] != "ensure_target" || c0.labels["status"] != "success" || c0.labels["job"] != "ledger" {
		t.Fatalf("counter[0].labels = %v", c0.labels)
	}
	if fb.counters[1].labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status] = %q, want failure", fb.counters[1].labels["status"])
	}

	h0 := fb.histograms[0]
	if h0.name != PhaseDuration || h0.value < 1.999 || h0.value > 2.001 {
		t.Fatalf("hist[0] = %#v; want %s ~2.0", h0, PhaseDuration)
	}
}

func TestRecordRowsAndBatches(t *testing.T) {
	fb := install(t)

	RecordRows("ledger", "transfer_ins", "read", 3)
	RecordRows("ledger", "transfer_ins", "amount_cast", 0)
	RecordRows("ledger", "pix_movements", "unknown_direction", 2)
	RecordBatches("ledger", "pix_movements", 1)
	RecordBatches("ledger", "pix_movements", -1)

	if len(fb.counters) != 3 {
		t.Fatalf("counter calls = %d, want 3 (zero and negative deltas skipped)", len(fb.counters))
	}
	c1 := fb.counters[1]
	if c1.name != RowsTotal || c1.delta != 2 || c1.labels["source"] != "pix_movements" || c1.labels["kind"] != "unknown_direction" {
		t.Fatalf("counter[1] = %#v", c1)
	}
	c2 := fb.counters[2]
	if c2.name != BatchesTotal || c2.labels["source"] != "pix_movements" {
		t.Fatalf("counter[2] = %#v", c2)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) replaced the backend")
	}

	Reset()
	if _, ok := current().(nopBackend); !ok {
		t.Fatalf("Reset() backend = %T, want nopBackend", current())
	}
}
