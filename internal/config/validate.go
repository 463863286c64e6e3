package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config, e.g. "metrics.pushgateway_url".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints cfg without mutating it.
func Validate(cfg Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(cfg.Job) == "" {
		add(SeverityWarning, "job", "job is empty; metrics will be labelled with the default job")
	}

	known := map[string]bool{}
	for _, s := range AllSteps {
		known[s] = true
	}
	for i, s := range cfg.Steps {
		if !known[s] {
			add(SeverityError, fmt.Sprintf("steps[%d]", i), "unknown step %q; want one of %s", s, strings.Join(AllSteps, ", "))
		}
	}

	if k := strings.TrimSpace(cfg.Storage.Kind); k != "" && k != "sqlite" {
		add(SeverityError, "storage.kind", "unsupported storage kind %q; only sqlite is available", k)
	}
	if strings.TrimSpace(cfg.Storage.DSN) == "" {
		add(SeverityError, "storage.dsn", "database DSN must not be empty")
	}

	if cfg.HasStep(StepLoad) && strings.TrimSpace(cfg.Ingest.DataDir) == "" {
		add(SeverityError, "ingest.data_dir", "data directory is required when the load step runs")
	}
	if cfg.Ingest.BatchSize <= 0 {
		add(SeverityError, "ingest.batch_size", "batch size must be > 0, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Migration.BatchSize <= 0 {
		add(SeverityError, "migration.batch_size", "batch size must be > 0, got %d", cfg.Migration.BatchSize)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "", "console", "json":
	default:
		add(SeverityError, "log.format", "unknown log format %q; want console or json", cfg.Log.Format)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		add(SeverityWarning, "log.level", "unknown log level %q; info will be used", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.Metrics.Backend) {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if strings.TrimSpace(cfg.Metrics.PushgatewayURL) == "" {
			add(SeverityError, "metrics.pushgateway_url", "pushgateway backend requires a URL")
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(cfg.Metrics.DatadogAddr) == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend requires an agent address")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q", cfg.Metrics.Backend)
	}
	return issues
}
