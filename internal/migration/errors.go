package migration

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when Run is called on an engine that is
// already running.
var ErrRunInProgress = errors.New("migration: run already in progress")

// ErrNoSources is wrapped in a PhaseError when no legacy table exists and the
// unified table is empty.
var ErrNoSources = errors.New("migration: no legacy source tables and no migrated rows")

// IntegrityError reports unified rows whose account_id matches no account.
// It is fatal: the legacy tables are kept so the run can be repaired and
// repeated.
type IntegrityError struct {
	Orphaned int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("migration: found %d orphaned transactions", e.Orphaned)
}

// PhaseError wraps an infrastructure failure with the phase and, for
// per-source phases, the source table being processed.
type PhaseError struct {
	Phase  string
	Source string
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("migration: %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("migration: %s %s: %v", e.Phase, e.Source, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// RetirementWarning is a non-fatal problem retiring one legacy table.
type RetirementWarning struct {
	Table  string
	Reason string
}

func (w RetirementWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Table, w.Reason)
}
