package metrics

import (
	"github.com/marmos91/dittowatch/pkg/mirror"
	"github.com/marmos91/dittowatch/pkg/policy"
)

// Constructors registered by pkg/metrics/prometheus. The indirection keeps
// this package free of the implementation and avoids an import cycle.
var (
	newWatcherMetrics func() policy.WatcherMetrics
	newMirrorMetrics  func() mirror.Metrics
)

// RegisterWatcherMetricsConstructor installs the watcher metrics
// implementation. Called from pkg/metrics/prometheus init().
func RegisterWatcherMetricsConstructor(fn func() policy.WatcherMetrics) {
	newWatcherMetrics = fn
}

// RegisterMirrorMetricsConstructor installs the mirror metrics
// implementation. Called from pkg/metrics/prometheus init().
func RegisterMirrorMetricsConstructor(fn func() mirror.Metrics) {
	newMirrorMetrics = fn
}

// NewWatcherMetrics returns a watcher metrics sink, or nil if metrics are
// disabled or no implementation was linked in.
//
// Example usage:
//
//	metrics.InitRegistry()
//	w, err := policy.New(opts, p, clk, s, policy.WithMetrics(metrics.NewWatcherMetrics()))
func NewWatcherMetrics() policy.WatcherMetrics {
	if !IsEnabled() || newWatcherMetrics == nil {
		return nil
	}
	return newWatcherMetrics()
}

// NewMirrorMetrics returns a mirror metrics sink, or nil if metrics are
// disabled or no implementation was linked in.
func NewMirrorMetrics() mirror.Metrics {
	if !IsEnabled() || newMirrorMetrics == nil {
		return nil
	}
	return newMirrorMetrics()
}
