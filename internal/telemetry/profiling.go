package telemetry

import (
	"fmt"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/marmos91/dittowatch/internal/logger"
)

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// InitProfiling starts Pyroscope continuous profiling. It returns a function
// that stops the profiler.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)

		switch name {
		case "mutex_count", "mutex_duration":
			runtime.SetMutexProfileFraction(5)
		case "block_count", "block_duration":
			runtime.SetBlockProfileRate(5)
		}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            map[string]string{"version": cfg.ServiceVersion},
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	logger.Info("Profiling enabled", "endpoint", cfg.Endpoint, "profiles", cfg.ProfileTypes)
	return profiler.Stop, nil
}

// ValidateProfileTypes checks every name against the supported profiles.
func ValidateProfileTypes(names []string) error {
	for _, name := range names {
		if _, err := parseProfileType(name); err != nil {
			return err
		}
	}
	return nil
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	pt, ok := profileTypes[name]
	if !ok {
		return "", fmt.Errorf("unknown profile type %q", name)
	}
	return pt, nil
}
