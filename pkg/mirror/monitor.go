package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/policy"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

// Monitor defaults, taken from the reference mirror setup: sample every
// 500ms over a 10s window and evaluate once 5 samples exist.
const (
	DefaultWindow     = 10 * time.Second
	DefaultMinSamples = 5
)

// ErrInvalidConfig is returned by NewMonitor for unusable settings.
var ErrInvalidConfig = errors.New("mirror: invalid config")

// Config describes one monitored mirror.
type Config struct {
	Name string

	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	ProbeSize     int

	LatencySLO     time.Duration
	ViolationRatio float64

	// Window and EvaluationInterval are converted to clock ticks. A zero
	// EvaluationInterval follows ProbeInterval.
	Window             time.Duration
	EvaluationInterval time.Duration
	MinSamples         int
	MaxSamples         int
}

func (c *Config) applyDefaults() {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = c.ProbeInterval
	}
	if c.ProbeSize <= 0 {
		c.ProbeSize = DefaultProbeSize
	}
	if c.ViolationRatio <= 0 {
		c.ViolationRatio = DefaultViolationRatio
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.EvaluationInterval <= 0 {
		c.EvaluationInterval = c.ProbeInterval
	}
	if c.MinSamples <= 0 {
		c.MinSamples = DefaultMinSamples
	}
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	case c.LatencySLO <= 0:
		return fmt.Errorf("%w: mirror %q: latency SLO must be positive", ErrInvalidConfig, c.Name)
	case c.ViolationRatio > 1:
		return fmt.Errorf("%w: mirror %q: violation ratio %.2f exceeds 1", ErrInvalidConfig, c.Name, c.ViolationRatio)
	case c.ProbeSize > block.MaxBlockSize:
		return fmt.Errorf("%w: mirror %q: probe size %d exceeds %d", ErrInvalidConfig, c.Name, c.ProbeSize, block.MaxBlockSize)
	}
	return nil
}

// Status is a point-in-time report on a monitor.
type Status struct {
	Name         string        `json:"name" yaml:"name"`
	StoreType    string        `json:"store_type" yaml:"store_type"`
	State        State         `json:"state" yaml:"state"`
	Since        time.Time     `json:"since" yaml:"since"`
	Running      bool          `json:"running" yaml:"running"`
	Samples      int           `json:"samples" yaml:"samples"`
	Summary      Summary       `json:"summary" yaml:"summary"`
	LastProbe    *ProbeStatus  `json:"last_probe,omitempty" yaml:"last_probe,omitempty"`
	ProbesOK     uint64        `json:"probes_ok" yaml:"probes_ok"`
	ProbesFailed uint64        `json:"probes_failed" yaml:"probes_failed"`
	LatencySLO   time.Duration `json:"latency_slo_ns" yaml:"latency_slo_ns"`
}

// ProbeStatus is the last probe as reported in a Status.
type ProbeStatus struct {
	At        time.Time `json:"at" yaml:"at"`
	LatencyMs float64   `json:"latency_ms" yaml:"latency_ms"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*monitorOptions)

type monitorOptions struct {
	metrics        Metrics
	watcherMetrics policy.WatcherMetrics
	listener       StateListener
}

// WithMetrics records probe and state metrics.
func WithMetrics(m Metrics) MonitorOption {
	return func(o *monitorOptions) { o.metrics = m }
}

// WithWatcherMetrics records the metrics of the underlying watcher.
func WithWatcherMetrics(m policy.WatcherMetrics) MonitorOption {
	return func(o *monitorOptions) { o.watcherMetrics = m }
}

// WithStateListener is called on every state transition, from the
// scheduler goroutine. It may read the monitor's Status but must not stop
// or close the monitor.
func WithStateListener(l StateListener) MonitorOption {
	return func(o *monitorOptions) { o.listener = l }
}

// Monitor watches the latency of one block store.
type Monitor struct {
	cfg     Config
	store   block.Store
	prober  *Prober
	policy  *LatencyPolicy
	watcher *policy.Watcher

	mu     sync.Mutex
	closed bool
}

// NewMonitor wires a prober, a latency policy and a watcher around store.
// The monitor owns store and closes it in Close.
func NewMonitor(cfg Config, store block.Store, clk policy.Clock, s policy.Scheduler, opts ...MonitorOption) (*Monitor, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: mirror %q: store is required", ErrInvalidConfig, cfg.Name)
	}
	if clk == nil {
		return nil, policy.ErrNilClock
	}

	var o monitorOptions
	for _, opt := range opts {
		opt(&o)
	}

	prober := NewProber(store, ProberConfig{
		Mirror:   cfg.Name,
		Interval: cfg.ProbeInterval,
		Timeout:  cfg.ProbeTimeout,
		Size:     cfg.ProbeSize,
	}, o.metrics)

	pol := NewLatencyPolicy(LatencyPolicyConfig{
		Mirror:             cfg.Name,
		SLO:                cfg.LatencySLO,
		FailedProbeLatency: cfg.ProbeTimeout,
		ViolationRatio:     cfg.ViolationRatio,
	}, prober, o.metrics, o.listener)

	var wopts []policy.Option
	if o.watcherMetrics != nil {
		wopts = append(wopts, policy.WithMetrics(o.watcherMetrics))
	}
	w, err := policy.New(policy.Options{
		Name:               cfg.Name,
		WindowDuration:     clock.FromDuration(clk, cfg.Window),
		MinSamples:         cfg.MinSamples,
		EvaluationInterval: clock.FromDuration(clk, cfg.EvaluationInterval),
		MaxSamples:         cfg.MaxSamples,
	}, pol, clk, s, wopts...)
	if err != nil {
		return nil, fmt.Errorf("mirror %q: %w", cfg.Name, err)
	}

	return &Monitor{
		cfg:     cfg,
		store:   store,
		prober:  prober,
		policy:  pol,
		watcher: w,
	}, nil
}

// Name returns the mirror name.
func (m *Monitor) Name() string {
	return m.cfg.Name
}

// Config returns the effective configuration, defaults applied.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Store returns the monitored store.
func (m *Monitor) Store() block.Store {
	return m.store
}

// Start begins probing and schedules the watcher. The prober stops when
// ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return policy.ErrClosed
	}

	if err := m.watcher.Start(); err != nil {
		return err
	}
	m.prober.Start(ctx)

	logger.Info("Mirror monitor started",
		logger.KeyMirror, m.cfg.Name,
		logger.KeyStoreType, m.store.Type(),
		logger.KeyInterval, m.cfg.EvaluationInterval,
		logger.KeyWindow, m.cfg.Window)
	return nil
}

// Stop halts probing and evaluation. The window and the verdict are kept.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	m.watcher.Stop()
	m.prober.Stop()
}

// Close stops the monitor and closes its store. Calling Close more than
// once does nothing.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	m.stopLocked()
	if err := m.watcher.Close(); err != nil {
		return err
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("close store for mirror %q: %w", m.cfg.Name, err)
	}
	return nil
}

// State returns the current verdict.
func (m *Monitor) State() State {
	s, _ := m.policy.State()
	return s
}

// Status reports the monitor's verdict, window and last probe.
func (m *Monitor) Status() Status {
	state, since := m.policy.State()
	ok, failed := m.prober.Counts()

	st := Status{
		Name:         m.cfg.Name,
		StoreType:    m.store.Type(),
		State:        state,
		Since:        since,
		Running:      m.watcher.Running(),
		Samples:      m.watcher.Len(),
		Summary:      m.policy.Summary(),
		ProbesOK:     ok,
		ProbesFailed: failed,
		LatencySLO:   m.cfg.LatencySLO,
	}
	if r, found := m.prober.Latest(); found {
		ps := &ProbeStatus{
			At:        r.At,
			LatencyMs: float64(r.Latency.Microseconds()) / 1000,
		}
		if r.Err != nil {
			ps.Error = r.Err.Error()
		}
		st.LastProbe = ps
	}
	return st
}
