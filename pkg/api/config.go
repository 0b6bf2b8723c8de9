package api

import "time"

// APIConfig configures the status API HTTP server.
//
// When Enabled is false, no API server is started.
type APIConfig struct {
	// Enabled controls whether the API server is started.
	// Default: true
	// Use a pointer to distinguish "not set" from "explicitly false"
	Enabled *bool `mapstructure:"enabled" yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port" json:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
}

// IsEnabled returns whether the API server is enabled.
// Defaults to true if not explicitly set.
func (c *APIConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ApplyDefaults fills in zero values.
func (c *APIConfig) ApplyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
