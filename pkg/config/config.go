package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittowatch/internal/bytesize"
	"github.com/marmos91/dittowatch/pkg/api"
	"github.com/marmos91/dittowatch/pkg/metrics"
	"github.com/marmos91/dittowatch/pkg/store/block"
)

// Config represents the DittoWatch configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOWATCH_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// API contains the status API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api" json:"api"`

	// Scheduler configures the executor that runs every watcher
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler" json:"scheduler"`

	// Watcher holds the window settings shared by all mirrors
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher" json:"watcher"`

	// Mirrors lists the monitored storage targets
	Mirrors []MirrorConfig `mapstructure:"mirrors" validate:"unique=Name,dive" yaml:"mirrors" json:"mirrors"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level" json:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format" json:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output" json:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, probe spans are exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" yaml:"insecure" json:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate" json:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling" json:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types" json:"profile_types"`
}

// SchedulerConfig configures the shared poller executor.
type SchedulerConfig struct {
	// Resolution is how often the executor checks for due watchers.
	// It bounds the jitter of every evaluation interval.
	// Default: 10ms
	Resolution time.Duration `mapstructure:"resolution" validate:"gte=0" yaml:"resolution" json:"resolution"`
}

// WatcherConfig sizes a sliding window. Durations are converted to clock
// ticks when the watcher is created.
type WatcherConfig struct {
	// Window is the retention horizon.
	// Default: 10s
	Window time.Duration `mapstructure:"window" validate:"gte=0" yaml:"window,omitempty" json:"window,omitempty"`

	// Interval is the measure and evaluate period.
	// Default: the mirror's probe interval
	Interval time.Duration `mapstructure:"interval" validate:"gte=0" yaml:"interval,omitempty" json:"interval,omitempty"`

	// MinSamples is the number of samples required before evaluating.
	// Default: 5
	MinSamples int `mapstructure:"min_samples" validate:"gte=0" yaml:"min_samples,omitempty" json:"min_samples,omitempty"`

	// MaxSamples bounds the window; 0 means unbounded.
	MaxSamples int `mapstructure:"max_samples" validate:"gte=0" yaml:"max_samples,omitempty" json:"max_samples,omitempty"`
}

// MirrorConfig describes one monitored storage target.
type MirrorConfig struct {
	// Name identifies the mirror in logs, metrics and the API
	Name string `mapstructure:"name" validate:"required" yaml:"name" json:"name"`

	// Store selects the block store backend to probe
	Store block.Config `mapstructure:"store" yaml:"store" json:"store"`

	// ProbeInterval is the time between probes.
	// Default: 500ms
	ProbeInterval time.Duration `mapstructure:"probe_interval" validate:"gte=0" yaml:"probe_interval" json:"probe_interval"`

	// ProbeTimeout bounds one probe round trip. Failed probes count as a
	// sample at this latency.
	// Default: the probe interval
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" validate:"gte=0" yaml:"probe_timeout" json:"probe_timeout"`

	// ProbeSize is the probe block payload
	// Supports human-readable formats: "4KiB", "1MB"
	// Default: 4KiB
	ProbeSize bytesize.ByteSize `mapstructure:"probe_size" yaml:"probe_size" json:"probe_size"`

	// LatencySLO is the round-trip latency above which a sample violates
	LatencySLO time.Duration `mapstructure:"latency_slo" validate:"required,gt=0" yaml:"latency_slo" json:"latency_slo"`

	// ViolationRatio is the share of violating samples that fails the mirror.
	// Default: 0.5
	ViolationRatio float64 `mapstructure:"violation_ratio" validate:"omitempty,gt=0,lte=1" yaml:"violation_ratio" json:"violation_ratio"`

	// Watcher overrides the shared window settings for this mirror.
	// Zero fields inherit.
	Watcher WatcherConfig `mapstructure:"watcher" yaml:"watcher,omitempty" json:"watcher,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOWATCH_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: User-friendly error with instructions if config not found
func MustLoad(configPath string) (*Config, error) {
	// Determine config path
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  dittowatch init\n\n"+
				"Or specify a custom config file:\n"+
				"  dittowatch <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  dittowatch init --config %s",
				configPath, configPath)
		}
	}

	// Load configuration
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Owner-only: mirror stores may carry S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use DITTOWATCH_ prefix and underscores
	// Example: DITTOWATCH_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/dittowatch/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			// Config file not found is acceptable - use defaults
			return false, nil
		}
		// Other errors are problems
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use human-readable
// sizes like "1Gi", "500Mi", "100MB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to ByteSize
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "1Gi", "500Mi", "100MB"
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittowatch")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "dittowatch")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
