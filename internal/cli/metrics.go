package cli

import (
	"log"

	"github.com/qpenko/database-importer/internal/config"
	"github.com/qpenko/database-importer/internal/metrics"
	"github.com/qpenko/database-importer/internal/metrics/datadog"
	"github.com/qpenko/database-importer/internal/metrics/prompush"
)

// setupMetrics installs the job's metrics backend and returns the function
// that flushes it. A backend that fails to start leaves metrics disabled.
func setupMetrics(job *config.Job, verbose bool) (flush func()) {
	var (
		b   metrics.Backend
		err error
	)
	switch job.Metrics.Backend {
	case config.MetricsPrometheus:
		b, err = prompush.NewBackend(job.Job, job.Metrics.PushgatewayURL)
		if err == nil {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", job.Metrics.PushgatewayURL, job.Metrics.Backend, job.Job)
		}
	case config.MetricsDatadog:
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       job.Metrics.DatadogAddr,
			Namespace:  "dbimport.",
			GlobalTags: []string{"job:" + job.Job},
		})
		if err == nil {
			log.Printf("metrics: addr=%v, backend=%v, job_name=%v", job.Metrics.DatadogAddr, job.Metrics.Backend, job.Job)
		}
	case "", config.MetricsNone:
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", job.Metrics.Backend)
		}
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", job.Metrics.Backend)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", job.Metrics.Backend, err)
		return func() {}
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}
