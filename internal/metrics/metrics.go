// Package metrics records run counters in a Prometheus registry.
//
// A run has no scrape endpoint; the registry is written once at the end in
// the node exporter textfile format. A nil *Metrics disables recording.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tracejack"

// Drop reasons for TracesDropped.
const (
	ReasonTooShort = "too_short"
	ReasonNoData   = "no_data"
)

// Metrics holds the counters of one run.
type Metrics struct {
	registry *prometheus.Registry

	windows        prometheus.Counter
	batches        prometheus.Counter
	tracesDropped  *prometheus.CounterVec
	filesWritten   prometheus.Counter
	samplesWritten prometheus.Counter
	inputFiles     prometheus.Gauge
	interrupted    prometheus.Gauge
	batchDuration  prometheus.Histogram
}

// New creates the run metrics in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		windows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Windows visited, including windows without data",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Non-empty batches processed",
		}),
		tracesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traces_dropped_total",
			Help:      "Traces dropped by the resampler",
		}, []string{"reason"}),
		filesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Output files written",
		}),
		samplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_written_total",
			Help:      "Samples written to output files",
		}),
		inputFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_files",
			Help:      "Input files indexed",
		}),
		interrupted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interrupted",
			Help:      "1 if the run was interrupted by the user",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to resample, rename and write one batch",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.windows,
		m.batches,
		m.tracesDropped,
		m.filesWritten,
		m.samplesWritten,
		m.inputFiles,
		m.interrupted,
		m.batchDuration,
	)
	// report both reasons even when nothing was dropped
	m.tracesDropped.WithLabelValues(ReasonTooShort)
	m.tracesDropped.WithLabelValues(ReasonNoData)
	return m
}

func (m *Metrics) Window() {
	if m != nil {
		m.windows.Inc()
	}
}

func (m *Metrics) Batch(d time.Duration) {
	if m != nil {
		m.batches.Inc()
		m.batchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.tracesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Written(samples int) {
	if m != nil {
		m.filesWritten.Inc()
		m.samplesWritten.Add(float64(samples))
	}
}

func (m *Metrics) InputFiles(n int) {
	if m != nil {
		m.inputFiles.Set(float64(n))
	}
}

func (m *Metrics) Interrupted() {
	if m != nil {
		m.interrupted.Set(1)
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
