package prometheus

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/mirror"
)

func enable(t *testing.T) {
	t.Helper()
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)
}

func TestDisabledReturnsNil(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, NewWatcherMetrics())
	assert.Nil(t, NewMirrorMetrics())
	assert.Nil(t, metrics.NewWatcherMetrics())
	assert.Nil(t, metrics.NewMirrorMetrics())
}

func TestConstructorsRegistered(t *testing.T) {
	enable(t)
	assert.NotNil(t, metrics.NewWatcherMetrics())
	assert.NotNil(t, metrics.NewMirrorMetrics())
}

func TestSharedPerRegistry(t *testing.T) {
	enable(t)
	assert.Same(t, NewWatcherMetrics(), NewWatcherMetrics())
	assert.Same(t, NewMirrorMetrics(), NewMirrorMetrics())

	first := NewWatcherMetrics()
	metrics.InitRegistry()
	assert.NotSame(t, first, NewWatcherMetrics())
}

func TestWatcherMetrics(t *testing.T) {
	enable(t)
	m := NewWatcherMetrics()

	m.ObserveTick("w", true)
	m.ObserveTick("w", false)
	m.RecordMeasureFailure("w")
	m.RecordWindowFull("w")
	m.RecordPruned("w", 3)
	m.RecordEvaluation("w")
	m.SetWindowSize("w", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("w")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.samples.WithLabelValues("w")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.measureFailures.WithLabelValues("w")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.windowFull.WithLabelValues("w")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pruned.WithLabelValues("w")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("w")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.windowSize.WithLabelValues("w")))
}

func TestMirrorMetrics(t *testing.T) {
	enable(t)
	m := NewMirrorMetrics()

	m.ObserveProbe("a", 3*time.Millisecond, nil)
	m.ObserveProbe("a", 50*time.Millisecond, fmt.Errorf("read: %w", context.DeadlineExceeded))
	m.ObserveProbe("a", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.probeDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeErrors.WithLabelValues("a", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probeErrors.WithLabelValues("a", "other")))

	m.SetState("a", mirror.StateFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("a", "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("a", "healthy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("a", "unknown")))

	m.RecordTransition("a", mirror.StateHealthy, mirror.StateFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("a", "healthy", "failed")))
}

func TestErrorReason(t *testing.T) {
	assert.Equal(t, "mismatch", errorReason(mirror.ErrProbeMismatch))
	assert.Equal(t, "other", errorReason(errors.New("x")))
}

func TestExposition(t *testing.T) {
	enable(t)
	NewWatcherMetrics().ObserveTick("primary", true)

	n, err := testutil.GatherAndCount(metrics.GetRegistry(), "dittowatch_watcher_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
