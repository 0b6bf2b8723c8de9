package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/internal/telemetry"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

// ErrProbeMismatch is returned when a probe block reads back different data.
var ErrProbeMismatch = errors.New("mirror: probe block read back corrupted")

// ProbeResult is the outcome of one probe round trip.
type ProbeResult struct {
	// Seq increases by one with every probe.
	Seq uint64

	At      time.Time
	Latency time.Duration
	Err     error
}

// LatencySource yields the most recent probe result.
type LatencySource interface {
	Latest() (ProbeResult, bool)
}

// ProberConfig configures a Prober.
type ProberConfig struct {
	Mirror   string
	Interval time.Duration
	Timeout  time.Duration
	Size     int
}

// Prober measures a block store by writing, reading back and deleting a
// small block on a fixed interval.
type Prober struct {
	store   block.Store
	cfg     ProberConfig
	metrics Metrics
	prefix  string

	latest atomic.Pointer[ProbeResult]
	seq    atomic.Uint64
	ok     atomic.Uint64
	failed atomic.Uint64

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Prober defaults.
const (
	DefaultProbeInterval = 500 * time.Millisecond
	DefaultProbeSize     = 4096
)

// NewProber creates a stopped prober. metrics may be nil. A zero Interval or
// Size takes the default; a zero Timeout equals the interval.
func NewProber(store block.Store, cfg ProberConfig, metrics Metrics) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultProbeSize
	}
	return &Prober{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		prefix:  "probe/" + cfg.Mirror + "/",
	}
}

// Start launches the probe loop. The first probe runs immediately. Calling
// Start on a running prober does nothing.
func (p *Prober) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.loop(ctx, p.stopCh, p.doneCh)
}

// Stop ends the probe loop and waits for an in-flight probe to finish.
func (p *Prober) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
}

func (p *Prober) loop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	// Blocks left behind by a probe interrupted mid-flight.
	if err := p.store.DeleteByPrefix(ctx, p.prefix); err != nil {
		logger.Warn("Failed to clean stale probe blocks",
			logger.KeyMirror, p.cfg.Mirror, logger.KeyError, err)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.Probe(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// Probe runs one round trip, publishes the result and returns it.
func (p *Prober) Probe(ctx context.Context) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	ctx, span := telemetry.StartProbeSpan(ctx, p.cfg.Mirror, p.store.Type(),
		telemetry.ProbeSize(p.cfg.Size))
	defer span.End()

	id := uuid.New()
	key := p.prefix + id.String()

	start := time.Now()
	err := p.roundTrip(ctx, key, payload(id, p.cfg.Size))
	elapsed := time.Since(start)

	result := ProbeResult{
		Seq:     p.seq.Add(1),
		At:      start,
		Latency: elapsed,
		Err:     err,
	}
	p.latest.Store(&result)

	span.SetAttributes(telemetry.LatencyMs(float64(elapsed.Microseconds())/1000), telemetry.ProbeOK(err == nil))
	if err != nil {
		p.failed.Add(1)
		telemetry.RecordError(ctx, err)
		logger.DebugCtx(telemetry.LogContext(ctx, logger.NewLogContext(p.cfg.Mirror)), "Probe failed",
			logger.KeyBlockID, key,
			logger.KeyDurationMs, float64(elapsed.Microseconds())/1000,
			logger.KeyError, err)
	} else {
		p.ok.Add(1)
	}
	if p.metrics != nil {
		p.metrics.ObserveProbe(p.cfg.Mirror, elapsed, err)
	}
	return result
}

func (p *Prober) roundTrip(ctx context.Context, key string, data []byte) error {
	if err := p.step(ctx, telemetry.SpanStoreWrite, key, func(ctx context.Context) error {
		return p.store.WriteBlock(ctx, key, data)
	}); err != nil {
		return fmt.Errorf("write probe block: %w", err)
	}

	var got []byte
	readErr := p.step(ctx, telemetry.SpanStoreRead, key, func(ctx context.Context) error {
		var err error
		got, err = p.store.ReadBlock(ctx, key)
		return err
	})

	// Delete even when the read failed so probes don't accumulate.
	deleteErr := p.step(ctx, telemetry.SpanStoreDelete, key, func(ctx context.Context) error {
		return p.store.DeleteBlock(ctx, key)
	})

	switch {
	case readErr != nil:
		return fmt.Errorf("read probe block: %w", readErr)
	case !bytes.Equal(got, data):
		return ErrProbeMismatch
	case deleteErr != nil:
		return fmt.Errorf("delete probe block: %w", deleteErr)
	}
	return nil
}

func (p *Prober) step(ctx context.Context, span, key string, fn func(context.Context) error) error {
	ctx, s := telemetry.StartStoreSpan(ctx, span, key)
	defer s.End()

	err := fn(ctx)
	telemetry.RecordError(ctx, err)
	return err
}

// payload fills size bytes with repetitions of the probe ID, so that a
// stale or foreign block never compares equal.
func payload(id uuid.UUID, size int) []byte {
	return bytes.Repeat(id[:], size/len(id)+1)[:size]
}

// Latest returns the most recent probe result, if any probe has run.
func (p *Prober) Latest() (ProbeResult, bool) {
	r := p.latest.Load()
	if r == nil {
		return ProbeResult{}, false
	}
	return *r, true
}

// Counts returns the number of successful and failed probes.
func (p *Prober) Counts() (ok, failed uint64) {
	return p.ok.Load(), p.failed.Load()
}

var _ LatencySource = (*Prober)(nil)
