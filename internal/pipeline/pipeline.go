// Package pipeline wires the ledger components into a run: it acquires the
// database, executes the requested steps in order and releases the database
// on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"bankledger/internal/config"
	"bankledger/internal/ingest"
	"bankledger/internal/logger"
	"bankledger/internal/metrics"
	"bankledger/internal/migration"
	"bankledger/internal/reports"
	"bankledger/internal/schema"
	"bankledger/internal/storage"
)

// Result collects what each executed step produced.
type Result struct {
	Steps     []string
	Loaded    []ingest.TableReport
	Migration *migration.Report
}

// Open acquires the repository described by cfg.
func Open(ctx context.Context, cfg config.Storage) (storage.Repository, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "sqlite"
	}
	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: cfg.DSN, ForeignKeys: cfg.ForeignKeys})
	if err != nil {
		return nil, fmt.Errorf("pipeline: open storage: %w", err)
	}
	return repo, nil
}

// Run executes steps (cfg.RunSteps() when empty) against a freshly opened
// repository. Steps run in the order given; the first failure stops the run.
func Run(ctx context.Context, cfg config.Config, steps ...string) (Result, error) {
	if len(steps) == 0 {
		steps = cfg.RunSteps()
	}
	for _, s := range steps {
		if !isStep(s) {
			return Result{}, fmt.Errorf("pipeline: unknown step %q", s)
		}
	}

	repo, err := Open(ctx, cfg.Storage)
	if err != nil {
		return Result{}, err
	}
	defer repo.Close()

	return RunWith(ctx, repo, cfg, steps...)
}

// RunWith executes steps against an already open repository. The caller
// keeps ownership of repo.
func RunWith(ctx context.Context, repo storage.Repository, cfg config.Config, steps ...string) (Result, error) {
	log := logger.FromContext(ctx)
	res := Result{}
	for _, step := range steps {
		start := time.Now()
		err := runStep(ctx, repo, cfg, step, &res)
		metrics.RecordPhase(cfg.Job, "step_"+step, err, time.Since(start))
		if err != nil {
			log.Error().Err(err).Str("step", step).Msg("pipeline: step failed")
			return res, err
		}
		res.Steps = append(res.Steps, step)
		log.Info().Str("step", step).Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).Msg("pipeline: step done")
	}
	return res, nil
}

func runStep(ctx context.Context, repo storage.Repository, cfg config.Config, step string, res *Result) error {
	switch step {
	case config.StepSchema:
		return schema.NewManager(repo).CreateAll(ctx)
	case config.StepLoad:
		l := ingest.New(repo, ingest.Options{BatchSize: cfg.Ingest.BatchSize, Dedup: cfg.Ingest.Dedup, Job: cfg.Job})
		loaded, err := l.LoadDir(ctx, cfg.Ingest.DataDir)
		res.Loaded = loaded
		return err
	case config.StepMigrate:
		rep, err := migration.New(repo, migration.Options{BatchSize: cfg.Migration.BatchSize, Job: cfg.Job}).Run(ctx)
		res.Migration = &rep
		return err
	case config.StepViews:
		return reports.CreateViews(ctx, repo)
	default:
		return fmt.Errorf("pipeline: unknown step %q", step)
	}
}

func isStep(s string) bool {
	for _, known := range config.AllSteps {
		if s == known {
			return true
		}
	}
	return false
}
