// Command bankledger loads legacy bank extracts into an embedded database,
// consolidates the legacy transaction tables into one ledger and builds the
// reporting views over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bankledger/internal/config"
	"bankledger/internal/logger"
	_ "bankledger/internal/storage/sqlite"
)

type rootOptions struct {
	configPath   string
	dsn          string
	dataDir      string
	logLevel     string
	logFormat    string
	metricsBack  string
	foreignKeys  bool
	dedup        bool
	ingestBatch  int
	migrateBatch int
}

// app carries the resolved configuration into subcommands.
type app struct {
	opts rootOptions
	cfg  config.Config
	log  zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bankledger: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bankledger",
		Short:         "Consolidate legacy bank transactions into a unified ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.resolve(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.opts.configPath, "config", "c", "", "YAML or JSON config file")
	f.StringVar(&a.opts.dsn, "db", "", "SQLite DSN, e.g. file:ledger.db (env BANKLEDGER_DB)")
	f.StringVar(&a.opts.dataDir, "data-dir", "", "directory with one subdirectory of CSV files per table (env BANKLEDGER_DATA_DIR)")
	f.StringVar(&a.opts.logLevel, "log-level", "", "trace, debug, info, warn, error (env BANKLEDGER_LOG_LEVEL)")
	f.StringVar(&a.opts.logFormat, "log-format", "", "console or json")
	f.StringVar(&a.opts.metricsBack, "metrics-backend", "", "none, pushgateway or datadog (env METRICS_BACKEND)")
	f.BoolVar(&a.opts.foreignKeys, "foreign-keys", false, "enable SQLite foreign key enforcement")
	f.BoolVar(&a.opts.dedup, "dedup", false, "drop exact duplicate CSV rows while loading")
	f.IntVar(&a.opts.ingestBatch, "load-batch-size", 0, "rows per insert transaction while loading")
	f.IntVar(&a.opts.migrateBatch, "migrate-batch-size", 0, "rows per insert transaction while migrating")

	root.AddCommand(
		newRunCmd(a),
		newStepCmd(a, config.StepSchema, "Create the core, legacy and unified tables"),
		newStepCmd(a, config.StepLoad, "Load CSV files from the data directory"),
		newStepCmd(a, config.StepMigrate, "Consolidate legacy transaction tables into transactions"),
		newStepCmd(a, config.StepViews, "Create the reporting views"),
		newReportCmd(a),
		newConfigCmd(a),
	)
	return root
}

// resolve layers defaults, the config file, the environment and explicitly
// set flags, then installs the logger on the command context.
func (a *app) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	config.ApplyEnv(&cfg, os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Storage.DSN = a.opts.dsn
	}
	if flags.Changed("data-dir") {
		cfg.Ingest.DataDir = a.opts.dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.opts.logFormat
	}
	if flags.Changed("metrics-backend") {
		cfg.Metrics.Backend = a.opts.metricsBack
	}
	if flags.Changed("foreign-keys") {
		cfg.Storage.ForeignKeys = a.opts.foreignKeys
	}
	if flags.Changed("dedup") {
		cfg.Ingest.Dedup = a.opts.dedup
	}
	if flags.Changed("load-batch-size") {
		cfg.Ingest.BatchSize = a.opts.ingestBatch
	}
	if flags.Changed("migrate-batch-size") {
		cfg.Migration.BatchSize = a.opts.migrateBatch
	}
	a.cfg = cfg

	a.log = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Out: cmd.ErrOrStderr()})
	cmd.SetContext(logger.WithContext(cmd.Context(), a.log))
	return nil
}

// checkConfig refuses to run with configuration errors.
func (a *app) checkConfig() error {
	issues := config.Validate(a.cfg)
	for _, iss := range issues {
		a.log.Warn().Str("severity", string(iss.Severity)).Str("path", iss.Path).Msg(iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("invalid configuration (%d issues); see `bankledger config validate`", len(issues))
	}
	return nil
}
