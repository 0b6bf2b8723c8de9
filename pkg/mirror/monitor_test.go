package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/policy"
	"github.com/marmos91/dittowatch/pkg/sched"
	"github.com/marmos91/dittowatch/pkg/store/block"
	"github.com/marmos91/dittowatch/pkg/store/block/memory"
)

func testConfig(name string) Config {
	return Config{
		Name:          name,
		ProbeInterval: 100 * time.Millisecond,
		ProbeTimeout:  50 * time.Millisecond,
		LatencySLO:    20 * time.Millisecond,
		Window:        time.Second,
		MinSamples:    3,
	}
}

type monitorFixture struct {
	monitor *Monitor
	store   *memory.Store
	sched   *sched.Manual
}

func newMonitorFixture(t *testing.T, cfg Config, opts ...MonitorOption) *monitorFixture {
	t.Helper()
	store := memory.New()
	s := sched.NewManual(clock.NewManual(1000))

	m, err := NewMonitor(cfg, store, s.Clock(), s, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return &monitorFixture{monitor: m, store: store, sched: s}
}

// step probes synchronously and runs one watcher tick.
func (f *monitorFixture) step(t *testing.T, n int) {
	t.Helper()
	interval := clock.FromDuration(f.sched.Clock(), f.monitor.cfg.EvaluationInterval)
	for range n {
		f.monitor.prober.Probe(context.Background())
		f.sched.Advance(interval)
	}
}

func TestMonitorDefaults(t *testing.T) {
	f := newMonitorFixture(t, Config{Name: "m", LatencySLO: time.Millisecond})

	cfg := f.monitor.Config()
	assert.Equal(t, DefaultProbeInterval, cfg.ProbeInterval)
	assert.Equal(t, DefaultProbeInterval, cfg.ProbeTimeout)
	assert.Equal(t, DefaultProbeInterval, cfg.EvaluationInterval)
	assert.Equal(t, DefaultWindow, cfg.Window)
	assert.Equal(t, DefaultMinSamples, cfg.MinSamples)
	assert.Equal(t, DefaultViolationRatio, cfg.ViolationRatio)

	opts := f.monitor.watcher.Options()
	assert.Equal(t, uint64(10000), opts.WindowDuration)
	assert.Equal(t, uint64(500), opts.EvaluationInterval)
}

func TestNewMonitorValidation(t *testing.T) {
	clk := clock.NewManual(1000)
	s := sched.NewManual(clk)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.Name = "" }},
		{"zero SLO", func(c *Config) { c.LatencySLO = 0 }},
		{"ratio above one", func(c *Config) { c.ViolationRatio = 1.5 }},
		{"probe too large", func(c *Config) { c.ProbeSize = block.MaxBlockSize + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("m")
			tt.mutate(&cfg)
			_, err := NewMonitor(cfg, memory.New(), clk, s)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewMonitor(testConfig("m"), nil, clk, s)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewMonitor(testConfig("m"), memory.New(), nil, s)
	assert.ErrorIs(t, err, policy.ErrNilClock)

	cfg := testConfig("m")
	cfg.MaxSamples = 1
	_, err = NewMonitor(cfg, memory.New(), clk, s)
	assert.Error(t, err, "max samples below min samples")
}

func TestMonitorFailsWhenStoreDown(t *testing.T) {
	metrics := newRecordingMetrics()
	var changes []transition
	f := newMonitorFixture(t, testConfig("primary"),
		WithMetrics(metrics),
		WithStateListener(func(_ string, from, to State) {
			changes = append(changes, transition{from, to})
		}))
	require.NoError(t, f.monitor.watcher.Start())

	f.step(t, 3)
	assert.Equal(t, StateHealthy, f.monitor.State())

	f.store.SetFailure(errors.New("disk gone"))
	f.step(t, 3)
	assert.Equal(t, StateHealthy, f.monitor.State(), "3 of 6 failed")

	f.step(t, 1)
	assert.Equal(t, StateFailed, f.monitor.State())
	assert.Equal(t, []transition{{StateUnknown, StateHealthy}, {StateHealthy, StateFailed}}, changes)

	st := f.monitor.Status()
	assert.Equal(t, "primary", st.Name)
	assert.Equal(t, "memory", st.StoreType)
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, 7, st.Samples)
	assert.Equal(t, 4, st.Summary.Violations)
	assert.Equal(t, uint64(3), st.ProbesOK)
	assert.Equal(t, uint64(4), st.ProbesFailed)
	require.NotNil(t, st.LastProbe)
	assert.Contains(t, st.LastProbe.Error, "disk gone")
	assert.InDelta(t, 50.0, st.Summary.MaxMs, 0.001)
	assert.Equal(t, 7, metrics.probes)
}

func TestMonitorFailsWhenStoreSlow(t *testing.T) {
	f := newMonitorFixture(t, testConfig("slow"))
	require.NoError(t, f.monitor.watcher.Start())

	f.store.SetDelay(10 * time.Millisecond)
	f.step(t, 3)
	assert.Equal(t, StateFailed, f.monitor.State(), "three ops at 10ms each exceed 20ms")

	f.store.SetDelay(0)
	f.step(t, 8)
	assert.Equal(t, StateHealthy, f.monitor.State())
}

func TestMonitorNoProbeNoSample(t *testing.T) {
	f := newMonitorFixture(t, testConfig("idle"))
	require.NoError(t, f.monitor.watcher.Start())

	f.sched.Advance(1000)
	assert.Zero(t, f.monitor.Status().Samples)
	assert.Equal(t, StateUnknown, f.monitor.State())
	assert.Nil(t, f.monitor.Status().LastProbe)
}

func TestMonitorLifecycle(t *testing.T) {
	cfg := testConfig("life")
	cfg.ProbeInterval = time.Hour
	f := newMonitorFixture(t, cfg)

	ctx := context.Background()
	require.NoError(t, f.monitor.Start(ctx))
	require.NoError(t, f.monitor.Start(ctx))
	assert.True(t, f.monitor.Status().Running)

	require.Eventually(t, func() bool {
		return f.monitor.Status().ProbesOK == 1
	}, time.Second, 5*time.Millisecond)

	f.monitor.Stop()
	assert.False(t, f.monitor.Status().Running)
	assert.Zero(t, f.sched.Registered())

	require.NoError(t, f.monitor.Close())
	require.NoError(t, f.monitor.Close())
	assert.ErrorIs(t, f.monitor.Start(ctx), policy.ErrClosed)
	assert.ErrorIs(t, f.store.WriteBlock(ctx, "k", []byte("v")), block.ErrStoreClosed)
}
