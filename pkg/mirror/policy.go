package mirror

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/policy"
)

// DefaultViolationRatio fails a mirror when more than half of the window
// breaches the SLO.
const DefaultViolationRatio = 0.5

// Summary describes the window seen by the last evaluation.
type Summary struct {
	Samples    int     `json:"samples" yaml:"samples"`
	Violations int     `json:"violations" yaml:"violations"`
	MeanMs     float64 `json:"mean_ms" yaml:"mean_ms"`
	P50Ms      float64 `json:"p50_ms" yaml:"p50_ms"`
	P99Ms      float64 `json:"p99_ms" yaml:"p99_ms"`
	MaxMs      float64 `json:"max_ms" yaml:"max_ms"`
}

// LatencyPolicy judges a mirror by the share of probe latencies above an
// SLO. Sample values are microseconds.
type LatencyPolicy struct {
	mirror   string
	source   LatencySource
	slo      float64
	penalty  float64
	ratio    float64
	metrics  Metrics
	listener StateListener

	// lastSeq is only touched by Measure, which the watcher serializes.
	lastSeq uint64

	mu        sync.RWMutex
	state     State
	changedAt time.Time
	summary   Summary
}

// LatencyPolicyConfig configures a LatencyPolicy.
type LatencyPolicyConfig struct {
	Mirror string
	SLO    time.Duration

	// FailedProbeLatency is recorded for a probe that returned an error,
	// normally the probe timeout. Values not above SLO are raised just past
	// it so that errors always count as violations.
	FailedProbeLatency time.Duration

	// ViolationRatio is the share of violating samples above which the
	// mirror fails. Zero means DefaultViolationRatio.
	ViolationRatio float64
}

// NewLatencyPolicy creates a policy reading from source. metrics and
// listener may be nil.
func NewLatencyPolicy(cfg LatencyPolicyConfig, source LatencySource, metrics Metrics, listener StateListener) *LatencyPolicy {
	if cfg.ViolationRatio <= 0 {
		cfg.ViolationRatio = DefaultViolationRatio
	}
	if cfg.FailedProbeLatency <= cfg.SLO {
		cfg.FailedProbeLatency = cfg.SLO + time.Microsecond
	}
	return &LatencyPolicy{
		mirror:    cfg.Mirror,
		source:    source,
		slo:       micros(cfg.SLO),
		penalty:   micros(cfg.FailedProbeLatency),
		ratio:     cfg.ViolationRatio,
		metrics:   metrics,
		listener:  listener,
		changedAt: time.Now(),
	}
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// Measure returns the latency of the newest probe, or false when no probe
// has completed since the previous call.
func (p *LatencyPolicy) Measure() (float64, bool) {
	r, ok := p.source.Latest()
	if !ok || r.Seq == p.lastSeq {
		return 0, false
	}
	p.lastSeq = r.Seq

	if r.Err != nil {
		return p.penalty, true
	}
	return micros(r.Latency), true
}

// Evaluate flags samples above the SLO and updates the state.
func (p *LatencyPolicy) Evaluate(s *policy.Samples) {
	violations := 0
	for i, smp := range s.All() {
		violated := smp.Value > p.slo
		if violated != smp.InViolation {
			s.MarkViolation(i, violated)
		}
		if violated {
			violations++
		}
	}

	count := s.Len()
	next := StateHealthy
	if float64(violations) > float64(count)*p.ratio {
		next = StateFailed
	}

	summary := summarize(s.Values())
	summary.Violations = violations

	p.mu.Lock()
	prev := p.state
	p.state = next
	p.summary = summary
	if prev != next {
		p.changedAt = time.Now()
	}
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SetState(p.mirror, next)
	}
	if prev == next {
		return
	}

	args := []any{
		logger.KeyMirror, p.mirror,
		logger.KeyPrevState, prev.String(),
		logger.KeyState, next.String(),
		logger.KeyViolations, violations,
		logger.KeySamples, count,
	}
	if next == StateFailed {
		logger.Warn("Mirror failed latency SLO", args...)
	} else {
		logger.Info("Mirror healthy", args...)
	}

	if p.metrics != nil {
		p.metrics.RecordTransition(p.mirror, prev, next)
	}
	if p.listener != nil {
		p.listener(p.mirror, prev, next)
	}
}

func summarize(values []float64) Summary {
	sum := Summary{Samples: len(values)}
	if len(values) == 0 {
		return sum
	}

	toMs := func(us float64, err error) float64 {
		if err != nil {
			return 0
		}
		return us / 1000
	}
	sum.MeanMs = toMs(stats.Mean(values))
	sum.P50Ms = toMs(stats.Median(values))
	sum.P99Ms = toMs(stats.Percentile(values, 99))
	sum.MaxMs = toMs(stats.Max(values))
	return sum
}

// State returns the current verdict and when it was reached.
func (p *LatencyPolicy) State() (State, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.changedAt
}

// Summary returns the window summary of the last evaluation.
func (p *LatencyPolicy) Summary() Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

var _ policy.Policy = (*LatencyPolicy)(nil)
