package sched

import (
	"sort"
	"sync"

	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/policy"
)

// Manual fires pollers synchronously as its clock is advanced. Pollers run
// on the goroutine that calls RunDue or Advance, one at a time, in
// deadline order (registration order breaks ties).
type Manual struct {
	clock *clock.Manual

	mu      sync.Mutex
	pollers []*manualPoller
	nextID  uint64
	fired   uint64
}

type manualPoller struct {
	m         *Manual
	id        uint64
	fn        func()
	interval  uint64
	nextDue   uint64
	cancelled bool
}

// NewManual creates a scheduler driven by clk.
func NewManual(clk *clock.Manual) *Manual {
	return &Manual{clock: clk}
}

// Clock returns the clock driving the scheduler.
func (m *Manual) Clock() *clock.Manual {
	return m.clock
}

// Register schedules fn every interval ticks, first firing one interval
// from now.
func (m *Manual) Register(fn func(), interval uint64) (policy.Registration, error) {
	if interval == 0 {
		return nil, ErrInvalidInterval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	p := &manualPoller{
		m:        m,
		id:       m.nextID,
		fn:       fn,
		interval: interval,
		nextDue:  m.clock.Now() + interval,
	}
	m.pollers = append(m.pollers, p)
	return p, nil
}

// Unregister removes the poller. Pollers run on the caller's goroutine, so
// this never waits and may be called from inside the poller.
func (p *manualPoller) Unregister() {
	m := p.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.cancelled {
		return
	}
	p.cancelled = true
	for i, other := range m.pollers {
		if other == p {
			m.pollers = append(m.pollers[:i], m.pollers[i+1:]...)
			break
		}
	}
}

// Registered returns the number of active pollers.
func (m *Manual) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pollers)
}

// Fired returns the total number of poller invocations.
func (m *Manual) Fired() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

// RunDue fires, once each, the pollers due at the clock's current time and
// returns how many ran.
func (m *Manual) RunDue() int {
	now := m.clock.Now()
	ran := 0
	for _, p := range m.due(now) {
		if m.fire(p, now) {
			ran++
		}
	}
	return ran
}

// Advance moves the clock forward by ticks, stopping at every poller
// deadline on the way so that each poller observes the exact time it was
// due. It returns the number of invocations.
func (m *Manual) Advance(ticks uint64) int {
	target := m.clock.Now() + ticks
	ran := 0
	for {
		next, ok := m.nextDeadline()
		if !ok || next > target {
			break
		}
		m.clock.Set(next)
		ran += m.RunDue()
	}
	m.clock.Set(target)
	return ran
}

func (m *Manual) nextDeadline() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	var next uint64
	for _, p := range m.pollers {
		if !found || p.nextDue < next {
			next = p.nextDue
			found = true
		}
	}
	return next, found
}

func (m *Manual) due(now uint64) []*manualPoller {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*manualPoller
	for _, p := range m.pollers {
		if p.nextDue <= now {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].nextDue < due[j].nextDue
	})
	return due
}

func (m *Manual) fire(p *manualPoller, now uint64) bool {
	m.mu.Lock()
	if p.cancelled {
		m.mu.Unlock()
		return false
	}
	p.nextDue += p.interval
	if p.nextDue <= now {
		p.nextDue = now + p.interval
	}
	m.fired++
	m.mu.Unlock()

	p.fn()
	return true
}
