package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/mirror"
	"github.com/marmos91/dittowatch/pkg/policy"
	"github.com/marmos91/dittowatch/pkg/store"
)

// Merge returns w with every zero field of override replaced by w's value.
func (w WatcherConfig) Merge(override WatcherConfig) WatcherConfig {
	out := w
	if override.Window != 0 {
		out.Window = override.Window
	}
	if override.Interval != 0 {
		out.Interval = override.Interval
	}
	if override.MinSamples != 0 {
		out.MinSamples = override.MinSamples
	}
	if override.MaxSamples != 0 {
		out.MaxSamples = override.MaxSamples
	}
	return out
}

// MonitorConfig resolves the effective monitor settings of m against the
// shared watcher section.
func (m MirrorConfig) MonitorConfig(shared WatcherConfig) mirror.Config {
	w := shared.Merge(m.Watcher)
	return mirror.Config{
		Name:               m.Name,
		ProbeInterval:      m.ProbeInterval,
		ProbeTimeout:       m.ProbeTimeout,
		ProbeSize:          m.ProbeSize.Int(),
		LatencySLO:         m.LatencySLO,
		ViolationRatio:     m.ViolationRatio,
		Window:             w.Window,
		EvaluationInterval: w.Interval,
		MinSamples:         w.MinSamples,
		MaxSamples:         w.MaxSamples,
	}
}

// MetricsResult holds the metrics sinks and server created from config.
// Every field is nil when metrics are disabled.
type MetricsResult struct {
	Server         *metrics.Server
	WatcherMetrics policy.WatcherMetrics
	MirrorMetrics  mirror.Metrics
}

// InitializeMetrics enables the Prometheus registry when cfg.Metrics is
// enabled. It must run before InitializeRegistry so monitors pick up the
// sinks.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()
	return MetricsResult{
		Server:         metrics.NewServer(cfg.Metrics),
		WatcherMetrics: metrics.NewWatcherMetrics(),
		MirrorMetrics:  metrics.NewMirrorMetrics(),
	}
}

// InitializeRegistry creates a store and a monitor for every configured
// mirror. On error every store created so far is closed.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	exec := sched.NewExecutor(clk, cfg.Scheduler.Resolution)
//	reg, err := config.InitializeRegistry(ctx, cfg, clk, exec, config.InitializeMetrics(cfg))
func InitializeRegistry(ctx context.Context, cfg *Config, clk policy.Clock, s policy.Scheduler, m MetricsResult, opts ...mirror.MonitorOption) (*mirror.Registry, error) {
	if len(cfg.Mirrors) == 0 {
		return nil, errors.New("no mirrors configured")
	}

	opts = append([]mirror.MonitorOption{
		mirror.WithMetrics(m.MirrorMetrics),
		mirror.WithWatcherMetrics(m.WatcherMetrics),
	}, opts...)

	reg := mirror.NewRegistry()
	for _, mc := range cfg.Mirrors {
		mon, err := newMonitor(ctx, mc, cfg.Watcher, clk, s, opts)
		if err == nil {
			err = reg.Add(mon)
			if err != nil {
				_ = mon.Close()
			}
		}
		if err != nil {
			_ = reg.CloseAll()
			return nil, err
		}

		logger.Info("Mirror configured",
			logger.KeyMirror, mc.Name,
			logger.KeyStoreType, mc.Store.Type,
			"latency_slo", mc.LatencySLO,
			"probe_interval", mc.ProbeInterval)
	}
	return reg, nil
}

func newMonitor(ctx context.Context, mc MirrorConfig, shared WatcherConfig, clk policy.Clock, s policy.Scheduler, opts []mirror.MonitorOption) (*mirror.Monitor, error) {
	st, err := store.New(ctx, mc.Store)
	if err != nil {
		return nil, fmt.Errorf("mirror %q: %w", mc.Name, err)
	}

	mon, err := mirror.NewMonitor(mc.MonitorConfig(shared), st, clk, s, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return mon, nil
}
