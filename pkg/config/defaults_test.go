package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no port when metrics are disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{}
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Mirror(t *testing.T) {
	cfg := &Config{Mirrors: []MirrorConfig{{Name: "m", LatencySLO: time.Millisecond}}}
	ApplyDefaults(cfg)

	m := cfg.Mirrors[0]
	if m.Store.Type != block.TypeMemory {
		t.Errorf("Expected default store type memory, got %q", m.Store.Type)
	}
	if m.ProbeTimeout != m.ProbeInterval {
		t.Errorf("Expected probe timeout to follow interval, got %v vs %v", m.ProbeTimeout, m.ProbeInterval)
	}
	if m.Watcher != (WatcherConfig{}) {
		t.Errorf("Expected per-mirror watcher overrides to stay empty, got %+v", m.Watcher)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		ShutdownTimeout: 5 * time.Second,
		Scheduler:       SchedulerConfig{Resolution: time.Millisecond},
		Watcher:         WatcherConfig{Window: time.Minute, MinSamples: 12},
		Mirrors: []MirrorConfig{{
			Name:           "m",
			ProbeInterval:  time.Second,
			ProbeTimeout:   3 * time.Second,
			LatencySLO:     time.Second,
			ViolationRatio: 0.9,
		}},
	}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Scheduler.Resolution != time.Millisecond {
		t.Errorf("Expected resolution 1ms preserved, got %v", cfg.Scheduler.Resolution)
	}
	if cfg.Watcher.Window != time.Minute || cfg.Watcher.MinSamples != 12 {
		t.Errorf("Expected watcher values preserved, got %+v", cfg.Watcher)
	}
	m := cfg.Mirrors[0]
	if m.ProbeTimeout != 3*time.Second || m.ViolationRatio != 0.9 {
		t.Errorf("Expected mirror values preserved, got %+v", m)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}

func TestWatcherConfig_Merge(t *testing.T) {
	shared := WatcherConfig{Window: 10 * time.Second, Interval: time.Second, MinSamples: 5}
	got := shared.Merge(WatcherConfig{Interval: 2 * time.Second, MaxSamples: 50})

	want := WatcherConfig{Window: 10 * time.Second, Interval: 2 * time.Second, MinSamples: 5, MaxSamples: 50}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}
