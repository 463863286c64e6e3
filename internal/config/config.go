// Package config defines the configuration model for a ledger run. A Config
// is assembled in three layers: Default, then an optional YAML (or JSON) file
// via Load, then environment overrides via ApplyEnv. CLI flags are applied on
// top by cmd/bankledger.
//
// Example (ledger.yaml):
//
//	storage:
//	  dsn: file:ledger.db
//	ingest:
//	  data_dir: ./data
//	  dedup: true
//	metrics:
//	  backend: pushgateway
//	  pushgateway_url: http://localhost:9091
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline step names, in execution order.
const (
	StepSchema  = "schema"
	StepLoad    = "load"
	StepMigrate = "migrate"
	StepViews   = "views"
)

// AllSteps is the full run in order.
var AllSteps = []string{StepSchema, StepLoad, StepMigrate, StepViews}

// Config is the top-level document.
type Config struct {
	// Job labels metrics and log lines for this run.
	Job string `yaml:"job"`

	// Steps selects which pipeline steps `run` executes. Empty means all.
	Steps []string `yaml:"steps"`

	Storage   Storage   `yaml:"storage"`
	Ingest    Ingest    `yaml:"ingest"`
	Migration Migration `yaml:"migration"`
	Log       Log       `yaml:"log"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Storage selects the embedded database.
type Storage struct {
	Kind        string `yaml:"kind"`
	DSN         string `yaml:"dsn"`
	ForeignKeys bool   `yaml:"foreign_keys"`
}

// Ingest configures the CSV loader.
type Ingest struct {
	DataDir   string `yaml:"data_dir"`
	BatchSize int    `yaml:"batch_size"`
	Dedup     bool   `yaml:"dedup"`
}

// Migration configures the consolidation run.
type Migration struct {
	BatchSize int `yaml:"batch_size"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Metrics selects a metrics backend. Backend is "none", "pushgateway" or
// "datadog".
type Metrics struct {
	Backend        string `yaml:"backend"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Job:       "bankledger",
		Steps:     append([]string(nil), AllSteps...),
		Storage:   Storage{Kind: "sqlite", DSN: "file:ledger.db"},
		Ingest:    Ingest{DataDir: "data", BatchSize: 1000},
		Migration: Migration{BatchSize: 500},
		Log:       Log{Level: "info", Format: "console"},
		Metrics:   Metrics{Backend: "none"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Decode(bytes.NewReader(b), &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes one YAML document from r into cfg, keeping fields the
// document does not mention. An empty document is not an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables read through getenv.
// Empty values and malformed booleans are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set("BANKLEDGER_JOB", &cfg.Job)
	set("BANKLEDGER_DB", &cfg.Storage.DSN)
	set("BANKLEDGER_DATA_DIR", &cfg.Ingest.DataDir)
	set("BANKLEDGER_LOG_LEVEL", &cfg.Log.Level)
	set("BANKLEDGER_LOG_FORMAT", &cfg.Log.Format)
	set("METRICS_BACKEND", &cfg.Metrics.Backend)
	set("PUSHGATEWAY_URL", &cfg.Metrics.PushgatewayURL)
	set("DD_AGENT_ADDR", &cfg.Metrics.DatadogAddr)

	if v := strings.TrimSpace(getenv("BANKLEDGER_DEDUP")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ingest.Dedup = b
		}
	}
	if v := strings.TrimSpace(getenv("BANKLEDGER_STEPS")); v != "" {
		cfg.Steps = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RunSteps returns cfg.Steps, or AllSteps when none are configured.
func (c Config) RunSteps() []string {
	if len(c.Steps) == 0 {
		return append([]string(nil), AllSteps...)
	}
	return append([]string(nil), c.Steps...)
}

// HasStep reports whether step is among the run steps.
func (c Config) HasStep(step string) bool {
	for _, s := range c.RunSteps() {
		if s == step {
			return true
		}
	}
	return false
}
