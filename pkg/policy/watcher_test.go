package policy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/policy"
	"github.com/marmos91/dittowatch/pkg/sched"
)

// scriptedPolicy returns queued measurements and records every evaluation.
type scriptedPolicy struct {
	queue    []measurement
	fallback measurement

	evaluations [][]float64
	onEvaluate  func(*policy.Samples)
}

type measurement struct {
	value float64
	ok    bool
}

func (p *scriptedPolicy) push(value float64, ok bool) {
	p.queue = append(p.queue, measurement{value, ok})
}

func (p *scriptedPolicy) Measure() (float64, bool) {
	if len(p.queue) == 0 {
		return p.fallback.value, p.fallback.ok
	}
	m := p.queue[0]
	p.queue = p.queue[1:]
	return m.value, m.ok
}

func (p *scriptedPolicy) Evaluate(s *policy.Samples) {
	p.evaluations = append(p.evaluations, s.Values())
	if p.onEvaluate != nil {
		p.onEvaluate(s)
	}
}

type countingMetrics struct {
	ticks, recorded, failures, full, pruned, evaluations int
	size                                                 int
}

func (m *countingMetrics) ObserveTick(_ string, recorded bool) {
	m.ticks++
	if recorded {
		m.recorded++
	}
}
func (m *countingMetrics) RecordMeasureFailure(string)  { m.failures++ }
func (m *countingMetrics) RecordWindowFull(string)      { m.full++ }
func (m *countingMetrics) RecordPruned(_ string, n int) { m.pruned += n }
func (m *countingMetrics) RecordEvaluation(string)      { m.evaluations++ }
func (m *countingMetrics) SetWindowSize(_ string, n int) {
	m.size = n
}

type fixture struct {
	clock   *clock.Manual
	sched   *sched.Manual
	policy  *scriptedPolicy
	metrics *countingMetrics
	watcher *policy.Watcher
}

func newFixture(t *testing.T, opts policy.Options) *fixture {
	t.Helper()

	f := &fixture{
		clock:   clock.NewManual(1000),
		policy:  &scriptedPolicy{},
		metrics: &countingMetrics{},
	}
	f.sched = sched.NewManual(f.clock)

	if opts.Name == "" {
		opts.Name = t.Name()
	}
	w, err := policy.New(opts, f.policy, f.clock, f.sched, policy.WithMetrics(f.metrics))
	require.NoError(t, err)
	f.watcher = w
	t.Cleanup(func() { _ = w.Close() })
	return f
}

// tickAt runs one tick with the clock at t.
func (f *fixture) tickAt(t uint64) {
	f.clock.Set(t)
	f.watcher.Tick()
}

var scenarioOptions = policy.Options{
	WindowDuration:     1000,
	MinSamples:         3,
	EvaluationInterval: 100,
}

// seed records values 5, 6 and 7 at ticks 0, 100 and 200.
func (f *fixture) seed() {
	for i, v := range []float64{5, 6, 7} {
		f.policy.push(v, true)
		f.tickAt(uint64(i * 100))
	}
}

func TestWatcher_ScenarioA(t *testing.T) {
	t.Run("measurement succeeds", func(t *testing.T) {
		f := newFixture(t, scenarioOptions)
		f.seed()
		require.Len(t, f.policy.evaluations, 1)

		f.policy.push(8, true)
		f.tickAt(250)

		require.Len(t, f.policy.evaluations, 2)
		assert.Equal(t, []float64{5, 6, 7, 8}, f.policy.evaluations[1])
		assert.Equal(t, 4, f.watcher.Len())
		assert.Zero(t, f.metrics.pruned)
	})

	t.Run("measurement fails", func(t *testing.T) {
		f := newFixture(t, scenarioOptions)
		f.seed()

		f.policy.push(0, false)
		f.tickAt(250)

		require.Len(t, f.policy.evaluations, 2)
		assert.Equal(t, []float64{5, 6, 7}, f.policy.evaluations[1])
		assert.Equal(t, 3, f.watcher.Len())
	})
}

func TestWatcher_ScenarioB(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	f.seed()

	f.policy.push(0, false)
	f.tickAt(1300)

	assert.Equal(t, 0, f.watcher.Len())
	assert.Equal(t, 3, f.metrics.pruned)
	assert.Len(t, f.policy.evaluations, 1, "evaluate must not run below min samples")
}

func TestWatcher_ScenarioC(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	f.seed()
	f.policy.fallback = measurement{ok: false}

	for i := range 10 {
		f.tickAt(uint64(300 + i*10))
		assert.Equal(t, 3, f.watcher.Len())
	}
	assert.Equal(t, 10, f.metrics.failures)
	assert.Equal(t, 3, f.metrics.recorded)
	assert.Equal(t, 13, f.metrics.ticks)
}

func TestWatcher_ScenarioD(t *testing.T) {
	opts := scenarioOptions
	opts.MaxSamples = 3
	f := newFixture(t, opts)
	f.seed()

	f.policy.push(9, true)
	f.tickAt(300)

	assert.Equal(t, 3, f.watcher.Len())
	assert.Equal(t, 1, f.metrics.full)
	require.Len(t, f.policy.evaluations, 2)
	assert.Equal(t, []float64{5, 6, 7}, f.policy.evaluations[1])

	// Once the oldest sample ages out there is room again.
	f.policy.push(0, false)
	f.tickAt(1050)
	assert.Equal(t, 2, f.watcher.Len())

	f.policy.push(10, true)
	f.tickAt(1060)
	assert.Equal(t, 1, f.metrics.full)
	require.Len(t, f.policy.evaluations, 3)
	assert.Equal(t, []float64{6, 7, 10}, f.policy.evaluations[2])
}

func TestWatcher_WindowStaysOrdered(t *testing.T) {
	f := newFixture(t, policy.Options{WindowDuration: 250, MinSamples: 1, EvaluationInterval: 50})
	f.policy.fallback = measurement{value: 1, ok: true}
	require.NoError(t, f.watcher.Start())

	for range 40 {
		f.sched.Advance(50)

		snap := f.watcher.Snapshot()
		require.Equal(t, len(snap), f.watcher.Len())
		now := f.clock.Now()
		for i, s := range snap {
			assert.LessOrEqual(t, now-s.Timestamp, uint64(250))
			if i > 0 {
				assert.LessOrEqual(t, snap[i-1].Timestamp, s.Timestamp)
			}
		}
	}
	assert.Equal(t, 6, f.watcher.Len())
}

func TestWatcher_ScheduledTicks(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	f.policy.fallback = measurement{value: 1, ok: true}

	require.NoError(t, f.watcher.Start())
	assert.Equal(t, 3, f.sched.Advance(300))

	assert.Equal(t, 3, f.watcher.Len())
	assert.Len(t, f.policy.evaluations, 1)
	assert.Equal(t, 3, f.metrics.size)
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	f.policy.fallback = measurement{value: 1, ok: true}

	require.NoError(t, f.watcher.Start())
	require.NoError(t, f.watcher.Start())
	assert.Equal(t, 1, f.sched.Registered())
	assert.True(t, f.watcher.Running())

	f.sched.Advance(200)
	assert.Equal(t, 2, f.watcher.Len())

	f.watcher.Stop()
	f.watcher.Stop()
	assert.Equal(t, 0, f.sched.Registered())
	assert.False(t, f.watcher.Running())

	f.sched.Advance(500)
	assert.Equal(t, 2, f.watcher.Len(), "no ticks while stopped")

	require.NoError(t, f.watcher.Start())
	f.sched.Advance(100)
	assert.Equal(t, 3, f.watcher.Len(), "history survives a restart")
}

func TestWatcher_Close(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	f.policy.fallback = measurement{value: 1, ok: true}

	require.NoError(t, f.watcher.Start())
	f.sched.Advance(300)
	require.Equal(t, 3, f.watcher.Len())

	require.NoError(t, f.watcher.Close())
	assert.Equal(t, 0, f.watcher.Len())
	assert.Empty(t, f.watcher.Snapshot())
	assert.Equal(t, 0, f.sched.Registered())
	assert.False(t, f.watcher.Running())

	require.NoError(t, f.watcher.Close())
	assert.ErrorIs(t, f.watcher.Start(), policy.ErrClosed)
}

func TestWatcher_CloseNeverStarted(t *testing.T) {
	f := newFixture(t, scenarioOptions)
	require.NoError(t, f.watcher.Close())
	assert.Equal(t, 0, f.sched.Registered())
}

func TestWatcher_MarkViolationPersists(t *testing.T) {
	f := newFixture(t, policy.Options{WindowDuration: 1000, MinSamples: 1, EvaluationInterval: 100})
	f.policy.onEvaluate = func(s *policy.Samples) {
		for i, smp := range s.All() {
			if smp.Value > 5 && !smp.InViolation {
				s.MarkViolation(i, true)
			}
		}
	}

	for i, v := range []float64{1, 9, 2, 8} {
		f.policy.push(v, true)
		f.tickAt(uint64(i * 100))
	}

	var flags []bool
	for _, s := range f.watcher.Snapshot() {
		flags = append(flags, s.InViolation)
	}
	assert.Equal(t, []bool{false, true, false, true}, flags)
}

func TestWatcher_ViewInvalidatedAfterEvaluate(t *testing.T) {
	f := newFixture(t, policy.Options{WindowDuration: 1000, MinSamples: 1, EvaluationInterval: 100})

	var kept *policy.Samples
	f.policy.onEvaluate = func(s *policy.Samples) {
		assert.Equal(t, 1, s.Len())
		kept = s
	}
	f.policy.push(1, true)
	f.tickAt(0)

	require.NotNil(t, kept)
	assert.Equal(t, 0, kept.Len())
}

func TestWatcher_ViewInvalidatedAfterPanic(t *testing.T) {
	f := newFixture(t, policy.Options{WindowDuration: 1000, MinSamples: 1, EvaluationInterval: 100})

	var kept *policy.Samples
	f.policy.onEvaluate = func(s *policy.Samples) {
		kept = s
		panic("evaluate failed")
	}
	f.policy.push(1, true)
	assert.Panics(t, func() { f.tickAt(0) })

	require.NotNil(t, kept)
	assert.Equal(t, 0, kept.Len())
}

// blockingPolicy parks its first evaluation until release is closed, then
// reads the watcher state from inside the tick.
type blockingPolicy struct {
	watcher *policy.Watcher
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	running chan bool
}

func (p *blockingPolicy) Measure() (float64, bool) { return 1, true }

func (p *blockingPolicy) Evaluate(*policy.Samples) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
		p.running <- p.watcher.Running()
	})
}

func TestWatcher_StopWhileEvaluateReadsState(t *testing.T) {
	clk := clock.NewMonotonic()
	exec := sched.NewExecutor(clk, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = exec.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-exec.Done()
	})

	p := &blockingPolicy{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		running: make(chan bool, 1),
	}
	w, err := policy.New(policy.Options{
		Name:               t.Name(),
		WindowDuration:     clock.FromDuration(clk, time.Minute),
		MinSamples:         1,
		EvaluationInterval: clock.FromDuration(clk, time.Millisecond),
	}, p, clk, exec)
	require.NoError(t, err)
	p.watcher = w
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Start())
	select {
	case <-p.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never evaluated")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	// Stop has detached the registration and is waiting for the tick.
	require.Eventually(t, func() bool { return !w.Running() }, 2*time.Second, time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still running")
	default:
	}

	close(p.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the tick finished")
	}
	assert.False(t, <-p.running)
	assert.Equal(t, 0, exec.Len())
}

func TestWatcher_StopFromEvaluateOnManual(t *testing.T) {
	f := newFixture(t, policy.Options{WindowDuration: 1000, MinSamples: 2, EvaluationInterval: 100})
	f.policy.fallback = measurement{value: 1, ok: true}
	f.policy.onEvaluate = func(*policy.Samples) { f.watcher.Stop() }

	require.NoError(t, f.watcher.Start())
	f.sched.Advance(1000)

	assert.False(t, f.watcher.Running())
	assert.Len(t, f.policy.evaluations, 1)
	assert.Equal(t, 2, f.watcher.Len())
}

func TestNew_Validation(t *testing.T) {
	clk := clock.NewManual(0)
	s := sched.NewManual(clk)
	p := &scriptedPolicy{}

	_, err := policy.New(policy.Options{MinSamples: 0, EvaluationInterval: 1}, p, clk, s)
	assert.ErrorIs(t, err, policy.ErrInvalidMinSamples)

	_, err = policy.New(policy.Options{MinSamples: 1}, p, clk, s)
	assert.ErrorIs(t, err, policy.ErrInvalidInterval)

	opts := policy.Options{MinSamples: 1, EvaluationInterval: 1}
	_, err = policy.New(opts, nil, clk, s)
	assert.ErrorIs(t, err, policy.ErrNilPolicy)
	_, err = policy.New(opts, p, nil, s)
	assert.ErrorIs(t, err, policy.ErrNilClock)
	_, err = policy.New(opts, p, clk, nil)
	assert.ErrorIs(t, err, policy.ErrNilScheduler)

	w, err := policy.New(opts, p, clk, s)
	require.NoError(t, err)
	assert.Equal(t, opts, w.Options())
	assert.False(t, w.Running())
	assert.Equal(t, 0, w.Len())
}

type failingScheduler struct{}

func (failingScheduler) Register(func(), uint64) (policy.Registration, error) {
	return nil, sched.ErrExecutorStopped
}

func TestWatcher_StartRegisterError(t *testing.T) {
	w, err := policy.New(policy.Options{Name: "w", MinSamples: 1, EvaluationInterval: 1},
		&scriptedPolicy{}, clock.NewManual(0), failingScheduler{})
	require.NoError(t, err)

	err = w.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sched.ErrExecutorStopped))
	assert.False(t, w.Running())
}
