// Package clock provides the monotonic tick sources used by policy watchers
// and schedulers.
//
// A tick is an opaque, monotonically increasing integer. Callers size windows
// and intervals in wall-clock terms through TicksPerSecond, usually with the
// FromDuration and ToDuration helpers. Both clocks implement policy.Clock.
package clock

import (
	"sync"
	"time"

	"github.com/marmos91/dittowatch/pkg/policy"
)

// NanosecondHz is the tick rate of the Monotonic clock.
const NanosecondHz uint64 = uint64(time.Second)

// Monotonic counts nanoseconds since it was created. It relies on the
// monotonic reading carried by time.Time, so wall-clock adjustments do not
// affect it.
type Monotonic struct {
	start time.Time
}

// NewMonotonic creates a Monotonic clock starting at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns the nanoseconds elapsed since the clock was created.
func (m *Monotonic) Now() uint64 {
	return uint64(time.Since(m.start))
}

// TicksPerSecond returns NanosecondHz.
func (m *Monotonic) TicksPerSecond() uint64 {
	return NanosecondHz
}

// Manual is a clock that only moves when told to. It is safe for concurrent
// use and is meant for tests and simulations.
type Manual struct {
	mu  sync.Mutex
	now uint64
	hz  uint64
}

// NewManual creates a Manual clock at tick zero with the given rate.
// A zero rate defaults to 1000 ticks per second.
func NewManual(hz uint64) *Manual {
	if hz == 0 {
		hz = 1000
	}
	return &Manual{hz: hz}
}

// Now returns the current tick.
func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// TicksPerSecond returns the configured rate.
func (m *Manual) TicksPerSecond() uint64 {
	return m.hz
}

// Set moves the clock to t. Moving backwards is ignored so the clock stays
// monotonic.
func (m *Manual) Set(t uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t > m.now {
		m.now = t
	}
}

// Advance moves the clock forward by d ticks and returns the new time.
func (m *Manual) Advance(d uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}

// FromDuration converts a wall-clock duration to ticks of c.
// Negative durations convert to zero.
func FromDuration(c policy.Clock, d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	hz := c.TicksPerSecond()
	secs := uint64(d / time.Second)
	rem := uint64(d % time.Second)
	return secs*hz + rem*hz/uint64(time.Second)
}

// ToDuration converts ticks of c to a wall-clock duration.
func ToDuration(c policy.Clock, ticks uint64) time.Duration {
	hz := c.TicksPerSecond()
	if hz == 0 {
		return 0
	}
	secs := ticks / hz
	rem := ticks % hz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/hz)
}

var (
	_ policy.Clock = (*Monotonic)(nil)
	_ policy.Clock = (*Manual)(nil)
)
