package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittowatch/internal/bytesize"
	"github.com/marmos91/dittowatch/internal/telemetry"
	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/mirror"
	"github.com/marmos91/dittowatch/pkg/sched"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
// Per-mirror watcher fields are left zero so that they keep inheriting the
// shared watcher section.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(cfg)
	applySchedulerDefaults(&cfg.Scheduler)
	applyWatcherDefaults(&cfg.Watcher)
	for i := range cfg.Mirrors {
		applyMirrorDefaults(&cfg.Mirrors[i])
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry and profiling defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	defaults := telemetry.DefaultProfilingConfig()
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = defaults.Endpoint
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = defaults.ProfileTypes
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *metrics.Config) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAPIDefaults(cfg *Config) {
	cfg.API.ApplyDefaults()
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.Resolution == 0 {
		cfg.Resolution = sched.DefaultResolution
	}
}

// applyWatcherDefaults sets the shared window. Interval stays zero: each
// mirror then evaluates at its own probe interval.
func applyWatcherDefaults(cfg *WatcherConfig) {
	if cfg.Window == 0 {
		cfg.Window = mirror.DefaultWindow
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = mirror.DefaultMinSamples
	}
}

func applyMirrorDefaults(cfg *MirrorConfig) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = block.TypeMemory
	}
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = mirror.DefaultProbeInterval
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = cfg.ProbeInterval
	}
	if cfg.ProbeSize == 0 {
		cfg.ProbeSize = 4 * bytesize.KiB
	}
	if cfg.ViolationRatio == 0 {
		cfg.ViolationRatio = mirror.DefaultViolationRatio
	}
}

// GetDefaultConfig returns a Config with all default values applied and a
// single in-memory demo mirror.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Mirrors: []MirrorConfig{
			{
				Name:       "local",
				Store:      block.Config{Type: block.TypeMemory},
				LatencySLO: 10 * time.Millisecond,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
