package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/policy"
)

// DefaultResolution is how often an Executor checks for due pollers.
const DefaultResolution = 10 * time.Millisecond

var (
	// ErrExecutorStopped is returned by Register once the executor has exited.
	ErrExecutorStopped = errors.New("sched: executor stopped")

	// ErrInvalidInterval is returned by Register for a zero interval.
	ErrInvalidInterval = errors.New("sched: interval must be non-zero")
)

// Executor runs registered pollers on a single goroutine.
//
// A poller is due when the clock reaches its next deadline; it first fires
// one interval after registration. Pollers that fall behind are not run
// twice to catch up: the next deadline is moved past the current time.
type Executor struct {
	clock      policy.Clock
	resolution time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	pollers  map[uint64]*poller
	nextID   uint64
	current  *poller
	stopped  bool
	started  bool
	doneCh   chan struct{}
	runCount uint64
}

// NewExecutor creates an executor reading time from clk and checking for due
// pollers every resolution. A non-positive resolution uses DefaultResolution.
func NewExecutor(clk policy.Clock, resolution time.Duration) *Executor {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	e := &Executor{
		clock:      clk,
		resolution: resolution,
		pollers:    make(map[uint64]*poller),
		doneCh:     make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// poller is a function registered on an Executor.
type poller struct {
	exec      *Executor
	id        uint64
	fn        func()
	interval  uint64
	nextDue   uint64
	cancelled bool
}

// Register schedules fn every interval ticks. Pollers may be registered
// before Run is called; they start counting from the moment of
// registration.
func (e *Executor) Register(fn func(), interval uint64) (policy.Registration, error) {
	if interval == 0 {
		return nil, ErrInvalidInterval
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil, ErrExecutorStopped
	}

	e.nextID++
	p := &poller{
		exec:     e,
		id:       e.nextID,
		fn:       fn,
		interval: interval,
		nextDue:  e.clock.Now() + interval,
	}
	e.pollers[p.id] = p
	return p, nil
}

// Unregister removes the poller. If the poller is running on the executor
// goroutine, Unregister waits for it to return. It must therefore not be
// called from inside the poller's own function.
func (p *poller) Unregister() {
	e := p.exec
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.cancelled {
		return
	}
	p.cancelled = true
	delete(e.pollers, p.id)

	for e.current == p {
		e.cond.Wait()
	}
}

// Len returns the number of registered pollers.
func (e *Executor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pollers)
}

// Done is closed when Run returns.
func (e *Executor) Done() <-chan struct{} {
	return e.doneCh
}

// Run drives the pollers until ctx is cancelled. It must be called once.
// When it returns every poller has been dropped and further registrations
// fail with ErrExecutorStopped.
func (e *Executor) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("sched: executor already running")
	}
	e.started = true
	e.mu.Unlock()

	defer close(e.doneCh)

	logger.Debug("Scheduler executor started", logger.KeyResolution, e.resolution)

	ticker := time.NewTicker(e.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case <-ticker.C:
			e.runDue()
		}
	}
}

func (e *Executor) shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	for id, p := range e.pollers {
		p.cancelled = true
		delete(e.pollers, id)
	}
	logger.Debug("Scheduler executor stopped", logger.KeyRuns, e.runCount)
}

// runDue fires every poller whose deadline has passed.
func (e *Executor) runDue() {
	now := e.clock.Now()

	e.mu.Lock()
	due := make([]*poller, 0, len(e.pollers))
	for _, p := range e.pollers {
		if p.nextDue <= now {
			due = append(due, p)
		}
	}
	e.mu.Unlock()

	for _, p := range due {
		e.fire(p, now)
	}
}

func (e *Executor) fire(p *poller, now uint64) {
	e.mu.Lock()
	if p.cancelled {
		e.mu.Unlock()
		return
	}
	e.current = p
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.current = nil
		e.runCount++
		p.nextDue += p.interval
		if p.nextDue <= now {
			p.nextDue = now + p.interval
		}
		e.cond.Broadcast()
		e.mu.Unlock()

		if r := recover(); r != nil {
			logger.Error("Scheduler poller panicked", logger.KeyPoller, p.id, logger.KeyPanic, r)
		}
	}()

	p.fn()
}
