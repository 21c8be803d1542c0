// Package metrics collects per-run batch counters and publishes them as a
// Prometheus textfile for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gazefix/internal/services"
)

const namespace = "gazefix"

// Batch holds the counters of a single run. The zero value is not usable; call New.
type Batch struct {
	registry  *prometheus.Registry
	files     *prometheus.CounterVec
	fixations prometheus.Counter
	samples   prometheus.Counter
	duration  prometheus.Gauge
	lastRun   prometheus.Gauge
	classify  prometheus.Histogram
}

// New registers a fresh set of batch metrics.
func New() *Batch {
	b := &Batch{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Recordings visited by the last run, by outcome.",
		}, []string{"outcome"}),
		fixations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixations_total",
			Help:      "Fixation rows written by the last run.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Gaze samples loaded by the last run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		classify: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time spent in the fixation classifier per recording.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	b.registry.MustRegister(b.files, b.fixations, b.samples, b.duration, b.lastRun, b.classify)
	for _, o := range []services.Outcome{
		services.OutcomeProcessed,
		services.OutcomeEmpty,
		services.OutcomeClassificationFailed,
		services.OutcomeNoFixations,
		services.OutcomeInvalid,
		services.OutcomeFailed,
	} {
		b.files.WithLabelValues(string(o))
	}
	return b
}

// ObserveFile counts one recording and its contribution.
func (b *Batch) ObserveFile(outcome services.Outcome, samples, fixations int) {
	if b == nil {
		return
	}
	b.files.WithLabelValues(string(outcome)).Inc()
	b.samples.Add(float64(samples))
	b.fixations.Add(float64(fixations))
}

// ObserveClassify records the time one classifier call took.
func (b *Batch) ObserveClassify(d time.Duration) {
	if b == nil {
		return
	}
	b.classify.Observe(d.Seconds())
}

// Finish stamps the run duration and completion time.
func (b *Batch) Finish(started, finished time.Time) {
	if b == nil {
		return
	}
	b.duration.Set(finished.Sub(started).Seconds())
	b.lastRun.Set(float64(finished.Unix()))
}

// Gatherer exposes the underlying registry.
func (b *Batch) Gatherer() prometheus.Gatherer {
	return b.registry
}

// WriteTextfile writes the metrics in text exposition format. The file is
// replaced atomically so a concurrent scrape never reads a partial file.
func (b *Batch) WriteTextfile(path string) error {
	if b == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, b.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
