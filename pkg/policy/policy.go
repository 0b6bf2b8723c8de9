package policy

import "errors"

// Policy supplies measurements to a Watcher and judges the resulting window.
//
// Both methods are called on the scheduler's goroutine, never concurrently
// for the same watcher, and must not block.
type Policy interface {
	// Measure returns the current value of the watched metric. ok=false
	// means no measurement is available for this tick; nothing is recorded.
	Measure() (value float64, ok bool)

	// Evaluate is called with the current window whenever it holds at least
	// MinSamples samples. The view is only valid for the duration of the
	// call and must not be retained.
	Evaluate(samples *Samples)
}

// Scheduler runs a function periodically.
//
// Implementations must never invoke the same registration concurrently with
// itself, and Registration.Unregister must not return while an invocation
// of that registration is still running.
type Scheduler interface {
	// Register schedules fn to run every interval ticks.
	Register(fn func(), interval uint64) (Registration, error)
}

// Registration is a handle to a function scheduled with a Scheduler.
type Registration interface {
	// Unregister cancels the registration. It is safe to call more than once.
	Unregister()
}

// Clock is a monotonic tick source. Package clock provides the real and
// manual implementations.
type Clock interface {
	// Now returns the current time in ticks. Successive calls never decrease.
	Now() uint64

	// TicksPerSecond returns the tick rate of the clock.
	TicksPerSecond() uint64
}

// WatcherMetrics receives per-tick observations from a Watcher.
//
// A nil WatcherMetrics disables metrics collection with zero overhead.
type WatcherMetrics interface {
	// ObserveTick records a completed tick and whether a sample was added.
	ObserveTick(watcher string, recorded bool)

	// RecordMeasureFailure records a tick where Measure reported no value.
	RecordMeasureFailure(watcher string)

	// RecordWindowFull records a sample dropped because the window was full.
	RecordWindowFull(watcher string)

	// RecordPruned records samples removed by the prune step.
	RecordPruned(watcher string, count int)

	// RecordEvaluation records a call to Policy.Evaluate.
	RecordEvaluation(watcher string)

	// SetWindowSize reports the number of samples retained after a tick.
	SetWindowSize(watcher string, size int)
}

var (
	// ErrInvalidMinSamples is returned when Options.MinSamples is zero.
	ErrInvalidMinSamples = errors.New("policy: min samples must be at least 1")

	// ErrInvalidInterval is returned when Options.EvaluationInterval is zero.
	ErrInvalidInterval = errors.New("policy: evaluation interval must be non-zero")

	// ErrNilPolicy is returned when no Policy is supplied.
	ErrNilPolicy = errors.New("policy: policy is required")

	// ErrNilClock is returned when no Clock is supplied.
	ErrNilClock = errors.New("policy: clock is required")

	// ErrNilScheduler is returned when no Scheduler is supplied.
	ErrNilScheduler = errors.New("policy: scheduler is required")

	// ErrWindowFull is returned when a sample cannot be added because the
	// window already holds MaxSamples samples.
	ErrWindowFull = errors.New("policy: window is full")

	// ErrClosed is returned by Start on a closed watcher.
	ErrClosed = errors.New("policy: watcher is closed")
)
