package config

import (
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid log level", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"api port out of range", func(c *Config) { c.API.Port = 70000 }, "max"},
		{"metrics port negative", func(c *Config) { c.Metrics.Port = -1 }, "min"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "lte"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "required"},
		{"missing mirror name", func(c *Config) { c.Mirrors[0].Name = "" }, "Name"},
		{"missing latency slo", func(c *Config) { c.Mirrors[0].LatencySLO = 0 }, "LatencySLO"},
		{"ratio above one", func(c *Config) { c.Mirrors[0].ViolationRatio = 2 }, "ViolationRatio"},
		{"unknown store type", func(c *Config) { c.Mirrors[0].Store.Type = "tape" }, "oneof"},
		{"fs without path", func(c *Config) { c.Mirrors[0].Store.Type = block.TypeFS }, "fs.path"},
		{"badger without path", func(c *Config) { c.Mirrors[0].Store.Type = block.TypeBadger }, "badger"},
		{"s3 without bucket", func(c *Config) { c.Mirrors[0].Store.Type = block.TypeS3 }, "s3.bucket"},
		{"s3 half credentials", func(c *Config) {
			c.Mirrors[0].Store = block.Config{Type: block.TypeS3, S3: block.S3Config{Bucket: "b", AccessKeyID: "id"}}
		}, "together"},
		{"timeout below slo", func(c *Config) { c.Mirrors[0].ProbeTimeout = 5 * time.Millisecond }, "probe_timeout"},
		{"probe too large", func(c *Config) { c.Mirrors[0].ProbeSize = 5 << 20 }, "probe_size"},
		{"window below interval", func(c *Config) {
			c.Watcher.Window = time.Second
			c.Watcher.Interval = 2 * time.Second
		}, "shorter"},
		{"mirror override max below min", func(c *Config) { c.Mirrors[0].Watcher.MaxSamples = 2 }, "mirrors[0].watcher"},
		{"bad profile type", func(c *Config) {
			c.Telemetry.Profiling.Enabled = true
			c.Telemetry.Profiling.ProfileTypes = []string{"cpu", "heapz"}
		}, "profile_types"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_BadgerInMemory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Mirrors[0].Store = block.Config{Type: block.TypeBadger, Badger: block.BadgerConfig{InMemory: true}}

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected in-memory badger to be valid, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "Info", "WARN", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Level %q: unexpected error: %v", level, err)
		}
		if cfg.Logging.Level != strings.ToUpper(level) {
			t.Errorf("Level %q not normalized, got %q", level, cfg.Logging.Level)
		}
	}
}
