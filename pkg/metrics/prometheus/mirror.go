package prometheus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/mirror"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

func init() {
	metrics.RegisterMirrorMetricsConstructor(func() mirror.Metrics {
		if m := NewMirrorMetrics(); m != nil {
			return m
		}
		return nil
	})
}

var states = []mirror.State{mirror.StateUnknown, mirror.StateHealthy, mirror.StateFailed}

// mirrorMetrics is the Prometheus implementation of mirror.Metrics.
type mirrorMetrics struct {
	probeDuration *prometheus.HistogramVec
	probeErrors   *prometheus.CounterVec
	state         *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
}

var (
	mirrorMu    sync.Mutex
	mirrorReg   *prometheus.Registry
	mirrorCache *mirrorMetrics
)

// NewMirrorMetrics returns the mirror metrics of the active registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewMirrorMetrics() *mirrorMetrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	mirrorMu.Lock()
	defer mirrorMu.Unlock()
	if mirrorReg == reg {
		return mirrorCache
	}

	f := promauto.With(reg)
	m := &mirrorMetrics{
		probeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittowatch_mirror_probe_duration_milliseconds",
				Help: "Duration of mirror probe round trips in milliseconds",
				Buckets: []float64{
					1,    // 1ms - local memory or disk
					5,    // 5ms
					10,   // 10ms
					25,   // 25ms
					50,   // 50ms - typical object store
					100,  // 100ms
					250,  // 250ms
					500,  // 500ms
					1000, // 1s - degraded
					5000, // 5s
				},
			},
			[]string{"mirror", "status"},
		),
		probeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_mirror_probe_errors_total",
				Help: "Total number of failed mirror probes by error class",
			},
			[]string{"mirror", "reason"},
		),
		state: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittowatch_mirror_state",
				Help: "Mirror health state: 1 for the current state, 0 otherwise",
			},
			[]string{"mirror", "state"},
		),
		transitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittowatch_mirror_state_transitions_total",
				Help: "Total number of mirror state transitions",
			},
			[]string{"mirror", "from", "to"},
		),
	}

	mirrorReg, mirrorCache = reg, m
	return m
}

func (m *mirrorMetrics) ObserveProbe(name string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.probeErrors.WithLabelValues(name, errorReason(err)).Inc()
	}
	m.probeDuration.WithLabelValues(name, status).Observe(float64(d.Microseconds()) / 1000)
}

func (m *mirrorMetrics) SetState(name string, s mirror.State) {
	for _, candidate := range states {
		v := 0.0
		if candidate == s {
			v = 1
		}
		m.state.WithLabelValues(name, candidate.String()).Set(v)
	}
}

func (m *mirrorMetrics) RecordTransition(name string, from, to mirror.State) {
	m.transitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// errorReason maps a probe error to a low-cardinality label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, mirror.ErrProbeMismatch):
		return "mismatch"
	case errors.Is(err, block.ErrBlockNotFound):
		return "not_found"
	case errors.Is(err, block.ErrStoreClosed):
		return "closed"
	default:
		return "other"
	}
}

var _ mirror.Metrics = (*mirrorMetrics)(nil)
