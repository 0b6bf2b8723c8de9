package policy

import "fmt"

// Options configure a Watcher. They are copied at creation and never change.
type Options struct {
	// Name identifies the watcher in logs and metrics.
	Name string

	// WindowDuration is the retention horizon in ticks. A sample taken at t
	// is kept while now-t <= WindowDuration. It is normally several times
	// EvaluationInterval so that enough samples accumulate.
	WindowDuration uint64

	// MinSamples is the number of retained samples needed before Evaluate
	// is called. Must be at least 1.
	MinSamples int

	// EvaluationInterval is the tick period, in ticks. Must be non-zero.
	EvaluationInterval uint64

	// MaxSamples bounds the window. When the window is full new samples are
	// dropped until pruning makes room. Zero means unbounded.
	MaxSamples int
}

// Validate checks the options for values the watcher cannot run with.
func (o Options) Validate() error {
	if o.MinSamples < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMinSamples, o.MinSamples)
	}
	if o.EvaluationInterval == 0 {
		return ErrInvalidInterval
	}
	if o.MaxSamples < 0 {
		return fmt.Errorf("policy: max samples must not be negative: got %d", o.MaxSamples)
	}
	if o.MaxSamples > 0 && o.MaxSamples < o.MinSamples {
		return fmt.Errorf("policy: max samples (%d) is below min samples (%d)", o.MaxSamples, o.MinSamples)
	}
	return nil
}

// ExpectedSamples returns how many samples a full window holds when every
// measurement succeeds.
func (o Options) ExpectedSamples() uint64 {
	if o.EvaluationInterval == 0 {
		return 0
	}
	return o.WindowDuration/o.EvaluationInterval + 1
}
