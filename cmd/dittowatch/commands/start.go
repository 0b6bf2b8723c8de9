package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/internal/telemetry"
	"github.com/marmos91/dittowatch/pkg/api"
	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/config"
	"github.com/marmos91/dittowatch/pkg/runtime"
	"github.com/marmos91/dittowatch/pkg/sched"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/dittowatch/pkg/metrics/prometheus"
)

var pidFile string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DittoWatch server",
	Long: `Start DittoWatch in the foreground with the specified configuration.

Every configured mirror is probed and evaluated until SIGINT or SIGTERM
is received, after which the servers, monitors and stores are shut down
within shutdown_timeout.

Examples:
  # Start with the default config
  dittowatch start

  # Start with a custom config file
  dittowatch start --config /etc/dittowatch/config.yaml

  # Override settings from the environment
  DITTOWATCH_LOGGING_LEVEL=DEBUG dittowatch start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: none)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittowatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by now; flushing needs a live one.
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittowatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	metricsResult := config.InitializeMetrics(cfg)

	clk := clock.NewMonotonic()
	executor := sched.NewExecutor(clk, cfg.Scheduler.Resolution)

	registry, err := config.InitializeRegistry(ctx, cfg, clk, executor, metricsResult)
	if err != nil {
		return fmt.Errorf("failed to initialize mirrors: %w", err)
	}

	rt := runtime.New(registry, executor)
	rt.SetShutdownTimeout(cfg.ShutdownTimeout)

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		rt.SetMetricsServer(metricsResult.Server)
	} else {
		logger.Info("Metrics collection disabled")
	}

	if cfg.API.IsEnabled() {
		rt.SetAPIServer(api.NewServer(cfg.API, registry))
		logger.Info("API server configured", "port", cfg.API.Port)
	}

	if pidFile != "" {
		if err := writePidFile(pidFile); err != nil {
			_ = registry.CloseAll()
			return err
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	logger.Info("DittoWatch is running. Press Ctrl+C to stop.", "mirrors", registry.Len())
	if err := rt.Serve(ctx); err != nil {
		logger.Error("Server error", logger.KeyError, err)
		return err
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
