// Package metrics is a small, backend-agnostic layer for recording pipeline
// metrics: per-phase outcome and latency, per-source row counts, and batch
// counts.
//
// A global backend defaults to a no-op, so instrumentation is always safe to
// call. Concrete systems (Pushgateway, DogStatsD) live in subpackages and are
// installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	PhaseTotal    = "bankledger_phase_total"
	PhaseDuration = "bankledger_phase_duration_seconds"
	RowsTotal     = "bankledger_rows_total"
	BatchesTotal  = "bankledger_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset reinstalls the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordPhase counts one execution of a pipeline or migration phase and its
// duration, labelled success or failure.
func RecordPhase(job, phase string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"phase":  phase,
		"status": status,
	}
	b := current()
	b.IncCounter(PhaseTotal, 1, lbls)
	b.ObserveHistogram(PhaseDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given kind for a source table.
//
// Kinds used by the ledger:
//   - "read"
//   - "written"
//   - "amount_cast"
//   - "unknown_direction"
//   - "duplicate"
func RecordRows(job, source, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":    job,
		"source": source,
		"kind":   kind,
	})
}

// RecordBatches counts flushed write batches for a source table.
func RecordBatches(job, source string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{
		"job":    job,
		"source": source,
	})
}
