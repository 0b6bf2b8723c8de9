package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	// Enabled indicates whether tracing is enabled
	Enabled bool

	// ServiceName is the name of the service reported to the trace backend
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Endpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "dittowatch",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL (e.g., "http://localhost:4040")
	Endpoint string

	// ProfileTypes lists the profiles to collect. See parseProfileType for
	// the accepted names.
	ProfileTypes []string
}

// DefaultProfilingConfig returns profiling disabled, collecting CPU and heap
// profiles once enabled.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		ServiceName:    "dittowatch",
		ServiceVersion: "dev",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	}
}
