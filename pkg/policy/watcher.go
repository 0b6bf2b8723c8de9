package policy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittowatch/internal/logger"
)

// Watcher samples a Policy on a schedule and evaluates the trailing window.
//
// Start, Stop, Close and the accessors are safe for concurrent use. The
// window itself is only touched by ticks and by Close, which relies on the
// scheduler to serialize them.
type Watcher struct {
	opts    Options
	policy  Policy
	clock   Clock
	sched   Scheduler
	metrics WatcherMetrics

	window window
	view   Samples

	// size mirrors window.len() for readers outside the tick.
	size atomic.Int64

	mu     sync.Mutex
	reg    Registration
	closed bool

	// stopMu serializes Stop and Close so each returns only once the
	// detached registration has drained. It is never taken by a tick.
	stopMu sync.Mutex
}

// Option customizes a Watcher at creation.
type Option func(*Watcher)

// WithMetrics attaches a metrics sink. A nil sink is ignored.
func WithMetrics(m WatcherMetrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates a stopped watcher with an empty window.
//
// The policy is not owned by the watcher: Close never releases it.
func New(opts Options, p Policy, clk Clock, s Scheduler, options ...Option) (*Watcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNilPolicy
	}
	if clk == nil {
		return nil, ErrNilClock
	}
	if s == nil {
		return nil, ErrNilScheduler
	}

	w := &Watcher{
		opts:   opts,
		policy: p,
		clock:  clk,
		sched:  s,
		window: window{capacity: opts.MaxSamples},
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

// Options returns the options the watcher was created with.
func (w *Watcher) Options() Options {
	return w.opts
}

// Start schedules the watcher's tick every EvaluationInterval ticks.
// Calling Start on a running watcher does nothing.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.reg != nil {
		return nil
	}

	reg, err := w.sched.Register(w.Tick, w.opts.EvaluationInterval)
	if err != nil {
		return fmt.Errorf("policy: register watcher %q: %w", w.opts.Name, err)
	}
	w.reg = reg

	logger.Debug("Policy watcher started",
		logger.KeyWatcher, w.opts.Name,
		logger.KeyInterval, w.opts.EvaluationInterval,
		logger.KeyWindow, w.opts.WindowDuration,
		logger.KeyMinSamples, w.opts.MinSamples)
	return nil
}

// Stop cancels the schedule. Retained samples are kept, so a later Start
// resumes with the existing history. Calling Stop on a stopped watcher does
// nothing.
//
// When Stop returns no tick is running and none will run until the next
// Start.
func (w *Watcher) Stop() {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	w.mu.Lock()
	reg := w.detachLocked()
	w.mu.Unlock()
	w.unregister(reg)
}

// detachLocked clears the registration and returns it. The caller
// unregisters it after releasing w.mu: Unregister may wait for a tick that
// itself reads the watcher state.
func (w *Watcher) detachLocked() Registration {
	reg := w.reg
	w.reg = nil
	return reg
}

func (w *Watcher) unregister(reg Registration) {
	if reg == nil {
		return
	}
	reg.Unregister()

	logger.Debug("Policy watcher stopped",
		logger.KeyWatcher, w.opts.Name,
		logger.KeySamples, w.Len())
}

// Close stops the watcher and releases every retained sample. A closed
// watcher cannot be restarted. Calling Close more than once does nothing.
func (w *Watcher) Close() error {
	w.stopMu.Lock()
	defer w.stopMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	reg := w.detachLocked()
	w.mu.Unlock()

	w.unregister(reg)
	w.window.clear()
	w.size.Store(0)
	return nil
}

// Running reports whether the watcher is scheduled.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg != nil
}

// Len returns the number of samples retained after the last tick.
func (w *Watcher) Len() int {
	return int(w.size.Load())
}

// Snapshot returns a copy of the window. It must not race with a tick: call
// it while the watcher is stopped or from the scheduler's goroutine.
func (w *Watcher) Snapshot() []Sample {
	return w.window.snapshot()
}

// Tick runs one measure, prune and evaluate cycle. It is what the scheduler
// invokes; drivers that own their own loop may call it directly as long as
// they never call it concurrently.
func (w *Watcher) Tick() {
	now := w.clock.Now()

	recorded := false
	if value, ok := w.policy.Measure(); ok {
		if err := w.window.push(Sample{Timestamp: now, Value: value}); err != nil {
			// The retained window is still pruned and evaluated.
			logger.Warn("Policy watcher dropped sample",
				logger.KeyWatcher, w.opts.Name,
				logger.KeyValue, value,
				logger.KeySamples, w.window.len(),
				logger.KeyError, err)
			if w.metrics != nil {
				w.metrics.RecordWindowFull(w.opts.Name)
			}
		} else {
			recorded = true
		}
	} else if w.metrics != nil {
		w.metrics.RecordMeasureFailure(w.opts.Name)
	}

	if pruned := w.window.prune(now, w.opts.WindowDuration); pruned > 0 && w.metrics != nil {
		w.metrics.RecordPruned(w.opts.Name, pruned)
	}

	count := w.window.len()
	w.size.Store(int64(count))

	if count >= w.opts.MinSamples {
		w.evaluate()

		if w.metrics != nil {
			w.metrics.RecordEvaluation(w.opts.Name)
		}
	}

	if w.metrics != nil {
		w.metrics.ObserveTick(w.opts.Name, recorded)
		w.metrics.SetWindowSize(w.opts.Name, count)
	}
}

// evaluate hands the policy a view of the window that is revoked on return,
// including when Evaluate panics.
func (w *Watcher) evaluate() {
	w.view.w = &w.window
	defer func() { w.view.w = nil }()
	w.policy.Evaluate(&w.view)
}
