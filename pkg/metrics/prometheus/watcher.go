// Package prometheus implements the watcher and mirror metrics sinks on
// the registry owned by pkg/metrics.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/policy"
)

func init() {
	metrics.RegisterWatcherMetricsConstructor(func() policy.WatcherMetrics {
		if m := NewWatcherMetrics(); m != nil {
			return m
		}
		return nil
	})
}

// watcherMetrics is the Prometheus implementation of policy.WatcherMetrics.
type watcherMetrics struct {
	ticks           *prometheus.CounterVec
	samples         *prometheus.CounterVec
	measureFailures *prometheus.CounterVec
	windowFull      *prometheus.CounterVec
	pruned          *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	windowSize      *prometheus.GaugeVec
}

var (
	watcherMu    sync.Mutex
	watcherReg   *prometheus.Registry
	watcherCache *watcherMetrics
)

// NewWatcherMetrics returns the watcher metrics of the active registry.
// Every watcher shares one instance per registry, labelled by watcher name.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewWatcherMetrics() *watcherMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	watcherMu.Lock()
	defer watcherMu.Unlock()
	if watcherReg == reg {
		return watcherCache
	}

	f := promauto.With(reg)
	m := &watcherMetrics{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_ticks_total",
				Help: "Total number of watcher ticks",
			},
			[]string{"watcher"},
		),
		samples: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_samples_total",
				Help: "Total number of samples added to the window",
			},
			[]string{"watcher"},
		),
		measureFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_measure_failures_total",
				Help: "Total number of ticks whose measurement failed",
			},
			[]string{"watcher"},
		),
		windowFull: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_window_full_total",
				Help: "Total number of samples dropped because the window was full",
			},
			[]string{"watcher"},
		),
		pruned: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_pruned_samples_total",
				Help: "Total number of samples pruned out of the window",
			},
			[]string{"watcher"},
		),
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_watcher_evaluations_total",
				Help: "Total number of policy evaluations",
			},
			[]string{"watcher"},
		),
		windowSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittowatch_watcher_window_samples",
				Help: "Number of samples retained in the window after the last tick",
			},
			[]string{"watcher"},
		),
	}

	watcherReg, watcherCache = reg, m
	return m
}

func (m *watcherMetrics) ObserveTick(watcher string, recorded bool) {
	m.ticks.WithLabelValues(watcher).Inc()
	if recorded {
		m.samples.WithLabelValues(watcher).Inc()
	}
}

func (m *watcherMetrics) RecordMeasureFailure(watcher string) {
	m.measureFailures.WithLabelValues(watcher).Inc()
}

func (m *watcherMetrics) RecordWindowFull(watcher string) {
	m.windowFull.WithLabelValues(watcher).Inc()
}

func (m *watcherMetrics) RecordPruned(watcher string, count int) {
	m.pruned.WithLabelValues(watcher).Add(float64(count))
}

func (m *watcherMetrics) RecordEvaluation(watcher string) {
	m.evaluations.WithLabelValues(watcher).Inc()
}

func (m *watcherMetrics) SetWindowSize(watcher string, size int) {
	m.windowSize.WithLabelValues(watcher).Set(float64(size))
}

var _ policy.WatcherMetrics = (*watcherMetrics)(nil)
