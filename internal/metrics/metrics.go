// Package metrics counts remediation runs, applied edits and advisory
// attempts on a private Prometheus registry. A CLI process lives for one run,
// so the registry is exported to a node-exporter textfile instead of being
// scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cimedic"

// Recorder holds the run metrics. It satisfies engine.Recorder and
// advisory.Recorder. All methods are safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	// RunsTotal counts runs by terminal status and diagnosis kind.
	RunsTotal *prometheus.CounterVec
	// EditsTotal counts applied edits by operation.
	EditsTotal *prometheus.CounterVec
	// FilesTouchedTotal counts files rewritten by successful runs.
	FilesTouchedTotal prometheus.Counter
	// AdvisoryAttemptsTotal counts model attempts by provider and outcome
	// (success, error, timeout).
	AdvisoryAttemptsTotal *prometheus.CounterVec
	// RunDurationSeconds measures a whole run.
	RunDurationSeconds prometheus.Histogram
}

// New registers the metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Remediation runs by terminal status and diagnosis kind.",
		}, []string{"status", "kind"}),
		EditsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "File edits applied by operation.",
		}, []string{"operation"}),
		FilesTouchedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_touched_total",
			Help:      "Files rewritten by remediation runs.",
		}),
		AdvisoryAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_attempts_total",
			Help:      "Advisory model attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a remediation run in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) RecordRun(status, kind string, elapsed time.Duration) {
	r.RunsTotal.WithLabelValues(status, kind).Inc()
	r.RunDurationSeconds.Observe(elapsed.Seconds())
}

func (r *Recorder) RecordEdit(operation string) {
	r.EditsTotal.WithLabelValues(operation).Inc()
}

func (r *Recorder) RecordFilesTouched(n int) {
	r.FilesTouchedTotal.Add(float64(n))
}

func (r *Recorder) RecordAdvisoryAttempt(provider, outcome string) {
	r.AdvisoryAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically, for the node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
