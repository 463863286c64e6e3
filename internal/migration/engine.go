// Package migration consolidates the three legacy transaction tables into the
// unified transactions table.
//
// A run has four ordered phases:
//
//  1. ensure_target: create transactions if absent. Existing rows are kept.
//  2. migrate_source: once per legacy source, read every row, clean it and
//     insert it. Rows with an uncastable amount are dropped and counted. Pix
//     rows with an unknown direction keep a NULL type and are counted.
//     Unresolved timestamps become NULL. The phase fails when no legacy table
//     exists and the unified table is still empty.
//  3. validate: count unified rows whose account_id matches no account. Any
//     orphan aborts the run with *IntegrityError and keeps the legacy tables.
//  4. retire_sources: drop each legacy table that still exists. Problems are
//     reported as RetirementWarning and never fail the run.
//
// Rows written before a failure stay written. Transaction ids are derived
// from (source table, legacy id) and inserted with ON CONFLICT DO NOTHING,
// so repeating a run does not duplicate transactions.
package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bankledger/internal/catalog"
	"bankledger/internal/logger"
	"bankledger/internal/metrics"
	"bankledger/internal/query"
	"bankledger/internal/schema"
	"bankledger/internal/storage"
)

// Phase names, as they appear in logs, errors and metrics.
const (
	PhaseEnsureTarget  = "ensure_target"
	PhaseMigrateSource = "migrate_source"
	PhaseValidate      = "validate"
	PhaseRetireSources = "retire_sources"
)

// DefaultBatchSize is the number of unified rows written per transaction.
const DefaultBatchSize = 500

// Options tune an Engine. The zero value uses DefaultSources and
// DefaultBatchSize.
type Options struct {
	Sources   []Source
	BatchSize int

	// Job labels metrics; defaults to "bankledger".
	Job string

	// NewRunID overrides run id generation in tests.
	NewRunID func() string
}

// SourceReport summarises one migrate_source pass.
type SourceReport struct {
	Table            string
	Skipped          bool // table absent
	Read             int64
	Written          int64
	Duplicate        int64 // already present from an earlier run
	AmountCast       int64 // excluded
	UnknownDirection int64 // migrated with a NULL transaction_type
}

// Dropped is the number of legacy rows excluded from the unified table.
func (r SourceReport) Dropped() int64 {
	return r.AmountCast
}

// Report is the outcome of Run. On failure it holds whatever completed.
type Report struct {
	RunID          string
	Sources        []SourceReport
	Orphaned       int64
	NullTimestamps int64
	Retired        []string
	Warnings       []RetirementWarning
}

// Engine runs the consolidation against one repository. It assumes it is the
// only writer to the legacy and unified tables for the duration of a run.
type Engine struct {
	repo   storage.Repository
	schema *schema.Manager
	opts   Options

	mu sync.Mutex
}

// New returns an Engine over repo.
func New(repo storage.Repository, opts Options) *Engine {
	if len(opts.Sources) == 0 {
		opts.Sources = DefaultSources()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Job == "" {
		opts.Job = "bankledger"
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Engine{repo: repo, schema: schema.NewManager(repo), opts: opts}
}

// Run executes all four phases in order. Concurrent calls on the same engine
// fail with ErrRunInProgress.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	if !e.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer e.mu.Unlock()

	rep := Report{RunID: e.opts.NewRunID()}
	log := logger.FromContext(ctx).With().Str("run_id", rep.RunID).Logger()
	ctx = logger.WithContext(ctx, log)
	log.Info().Int("sources", len(e.opts.Sources)).Msg("migration: starting")

	if err := e.timed(ctx, PhaseEnsureTarget, func() error { return e.EnsureTarget(ctx) }); err != nil {
		return rep, err
	}

	var times TimeIndex
	err := e.timed(ctx, PhaseMigrateSource, func() error {
		var err error
		times, err = LoadTimeIndex(ctx, e.repo)
		if err != nil {
			return &PhaseError{Phase: PhaseMigrateSource, Source: catalog.Time, Err: err}
		}
		log.Debug().Int("entries", len(times)).Msg("migration: time dimension loaded")

		found := false
		for _, src := range e.opts.Sources {
			sr, err := e.MigrateSource(ctx, src, times)
			rep.Sources = append(rep.Sources, sr)
			if err != nil {
				return err
			}
			found = found || !sr.Skipped
		}
		if found {
			return nil
		}
		return e.checkTargetPopulated(ctx)
	})
	if err != nil {
		return rep, err
	}

	err = e.timed(ctx, PhaseValidate, func() error {
		var err error
		rep.Orphaned, rep.NullTimestamps, err = e.Validate(ctx)
		return err
	})
	if err != nil {
		return rep, err
	}

	start := time.Now()
	rep.Retired, rep.Warnings = e.RetireSources(ctx)
	d := time.Since(start)
	metrics.RecordPhase(e.opts.Job, PhaseRetireSources, nil, d)
	log.Info().Str("phase", PhaseRetireSources).Dur("elapsed", d).Msg("migration: phase done")

	log.Info().
		Int("retired", len(rep.Retired)).
		Int("warnings", len(rep.Warnings)).
		Msg("migration: completed")
	return rep, nil
}

func (e *Engine) timed(ctx context.Context, phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordPhase(e.opts.Job, phase, err, d)

	log := logger.FromContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("phase", phase).Dur("elapsed", d).Msg("migration: phase failed")
		return err
	}
	log.Info().Str("phase", phase).Dur("elapsed", d).Msg("migration: phase done")
	return nil
}

// EnsureTarget creates the unified table if it does not exist.
func (e *Engine) EnsureTarget(ctx context.Context) error {
	if err := e.schema.CreateUnifiedSchema(ctx); err != nil {
		return &PhaseError{Phase: PhaseEnsureTarget, Source: catalog.Transactions, Err: err}
	}
	return nil
}

// MigrateSource copies one legacy table into the unified table. An absent
// source table is skipped, which lets a run repeat after a completed one.
func (e *Engine) MigrateSource(ctx context.Context, src Source, times TimeIndex) (SourceReport, error) {
	sr := SourceReport{Table: src.Table}
	log := logger.FromContext(ctx).With().Str("phase", PhaseMigrateSource).Str("source", src.Table).Logger()
	fail := func(err error) (SourceReport, error) {
		return sr, &PhaseError{Phase: PhaseMigrateSource, Source: src.Table, Err: err}
	}

	exists, err := e.repo.TableExists(ctx, src.Table)
	if err != nil {
		return fail(err)
	}
	if !exists {
		sr.Skipped = true
		log.Warn().Msg("migration: source table not found, skipping")
		return sr, nil
	}

	raw, err := e.readSource(ctx, src)
	if err != nil {
		return fail(err)
	}
	sr.Read = int64(len(raw))

	out := make([][]any, 0, len(raw))
	for _, r := range raw {
		row, note := migrateRow(src, times, r)
		switch note {
		case noteAmountCast:
			sr.AmountCast++
		case noteUnknownDirection:
			sr.UnknownDirection++
		}
		if row != nil {
			out = append(out, row)
		}
	}

	insert, err := query.BuildInsertIgnore(catalog.MustLookup(catalog.Transactions), "transaction_id")
	if err != nil {
		return fail(err)
	}
	var batches int64
	sr.Written, err = storage.InsertBatches(ctx, src.Table, out, e.opts.BatchSize,
		func(ctx context.Context, batch [][]any) (int64, error) {
			n, err := e.repo.ExecBatch(ctx, insert, batch)
			if err == nil {
				batches++
			}
			return n, err
		})
	metrics.RecordBatches(e.opts.Job, src.Table, batches)
	if err != nil {
		return fail(err)
	}
	sr.Duplicate = int64(len(out)) - sr.Written

	metrics.RecordRows(e.opts.Job, src.Table, "read", sr.Read)
	metrics.RecordRows(e.opts.Job, src.Table, "written", sr.Written)
	metrics.RecordRows(e.opts.Job, src.Table, "duplicate", sr.Duplicate)
	metrics.RecordRows(e.opts.Job, src.Table, string(noteAmountCast), sr.AmountCast)
	metrics.RecordRows(e.opts.Job, src.Table, string(noteUnknownDirection), sr.UnknownDirection)

	if sr.UnknownDirection > 0 {
		log.Warn().
			Int64("rows", sr.UnknownDirection).
			Msg("migration: rows with unknown direction migrated without a type")
	}

	log.Info().
		Int64("rows_read", sr.Read).
		Int64("rows_written", sr.Written).
		Int64("rows_dropped", sr.Dropped()).
		Int64("rows_duplicate", sr.Duplicate).
		Str("rows_read_h", humanize.Comma(sr.Read)).
		Msg("migration: source migrated")
	return sr, nil
}

// checkTargetPopulated fails the phase when every legacy source was absent
// and the unified table holds nothing, which means no data was ever loaded.
func (e *Engine) checkTargetPopulated(ctx context.Context) error {
	stmt, err := query.BuildCount(catalog.MustLookup(catalog.Transactions), query.SelectSpec{})
	if err != nil {
		return &PhaseError{Phase: PhaseMigrateSource, Err: err}
	}
	var n int64
	if err := e.repo.QueryRow(ctx, stmt).Scan(&n); err != nil {
		return &PhaseError{Phase: PhaseMigrateSource, Source: catalog.Transactions, Err: err}
	}
	if n == 0 {
		return &PhaseError{Phase: PhaseMigrateSource, Err: ErrNoSources}
	}
	return nil
}

// readSource loads the whole legacy table. The repository holds a single
// connection, so rows are drained before any write happens.
func (e *Engine) readSource(ctx context.Context, src Source) ([][]any, error) {
	shape := src.readShape()
	stmt, err := query.BuildSelect(shape, query.SelectSpec{})
	if err != nil {
		return nil, err
	}
	rows, err := e.repo.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(shape.Columns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

// Validate counts orphaned unified rows (including NULL account_id) and rows
// with a NULL timestamp. Orphans yield *IntegrityError; NULL timestamps are
// only reported.
func (e *Engine) Validate(ctx context.Context) (orphaned, nullTimestamps int64, err error) {
	shape := catalog.MustLookup(catalog.Transactions)
	log := logger.FromContext(ctx).With().Str("phase", PhaseValidate).Logger()

	nullSQL, err := query.BuildCount(shape, query.SelectSpec{
		Conditions: []string{"(requested_at IS NULL OR completed_at IS NULL)"},
	})
	if err != nil {
		return 0, 0, &PhaseError{Phase: PhaseValidate, Err: err}
	}
	if err := e.repo.QueryRow(ctx, nullSQL).Scan(&nullTimestamps); err != nil {
		return 0, 0, &PhaseError{Phase: PhaseValidate, Source: catalog.Transactions, Err: err}
	}
	log.Info().Int64("null_timestamps", nullTimestamps).Msg("migration: rows with NULL timestamps (allowed)")

	orphanSQL, err := query.BuildCount(shape, query.SelectSpec{
		Joins:      []string{"LEFT JOIN accounts ON accounts.account_id = transactions.account_id"},
		Conditions: []string{"accounts.account_id IS NULL"},
	})
	if err != nil {
		return 0, nullTimestamps, &PhaseError{Phase: PhaseValidate, Err: err}
	}
	if err := e.repo.QueryRow(ctx, orphanSQL).Scan(&orphaned); err != nil {
		return 0, nullTimestamps, &PhaseError{Phase: PhaseValidate, Source: catalog.Accounts, Err: err}
	}
	if orphaned > 0 {
		return orphaned, nullTimestamps, &IntegrityError{Orphaned: orphaned}
	}
	log.Info().Msg("migration: account references valid")
	return 0, nullTimestamps, nil
}

// RetireSources drops every legacy source table that exists. Absent tables
// and failed drops come back as warnings.
func (e *Engine) RetireSources(ctx context.Context) (retired []string, warnings []RetirementWarning) {
	log := logger.FromContext(ctx).With().Str("phase", PhaseRetireSources).Logger()
	for _, src := range e.opts.Sources {
		exists, err := e.repo.TableExists(ctx, src.Table)
		if err != nil {
			warnings = append(warnings, RetirementWarning{Table: src.Table, Reason: err.Error()})
			log.Warn().Err(err).Str("source", src.Table).Msg("migration: existence check failed")
			continue
		}
		if !exists {
			warnings = append(warnings, RetirementWarning{Table: src.Table, Reason: "not found"})
			log.Warn().Str("source", src.Table).Msg("migration: legacy table not found")
			continue
		}
		stmt, err := query.BuildDropTable(src.Table, false)
		if err == nil {
			err = e.repo.Exec(ctx, stmt)
		}
		if err != nil {
			warnings = append(warnings, RetirementWarning{Table: src.Table, Reason: err.Error()})
			log.Warn().Err(err).Str("source", src.Table).Msg("migration: drop failed")
			continue
		}
		retired = append(retired, src.Table)
		log.Info().Str("source", src.Table).Msg("migration: legacy table removed")
	}
	return retired, warnings
}
