package pipeline

import (
	"context"
	"strings"

	"bankledger/internal/config"
	"bankledger/internal/logger"
	"bankledger/internal/metrics"
	"bankledger/internal/metrics/datadog"
	"bankledger/internal/metrics/prompush"
)

// SetupMetrics installs the configured metrics backend and returns a flush
// func for the caller to defer. A backend that fails to initialise is
// logged and replaced by the nop backend; metrics never fail a run.
func SetupMetrics(ctx context.Context, job string, cfg config.Metrics) func() {
	log := logger.FromContext(ctx)
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		log.Debug().Msg("metrics: disabled")
		return func() {}
	case "pushgateway", "prom", "prometheus":
		b, err = prompush.NewBackend(job, cfg.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.DatadogAddr,
			Namespace:  "ledger.",
			GlobalTags: []string{"job:" + job},
		})
	default:
		log.Warn().Str("backend", cfg.Backend).Msg("metrics: unknown backend; metrics disabled")
		return func() {}
	}
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Backend).Msg("metrics: init failed; using nop")
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info().Str("backend", cfg.Backend).Str("job", job).Msg("metrics: enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics: flush error")
		}
	}
}
