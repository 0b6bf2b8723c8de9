package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/internal/logger"
)

// Config configures the metrics endpoint.
type Config struct {
	// Enabled controls whether metrics are collected and served.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Port is the HTTP port serving /metrics.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port" json:"port"`
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 9090
	}
}

// Server exposes the registry on /metrics.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer creates a stopped metrics server. It serves whatever registry
// is active when it is created, so call InitRegistry first.
func NewServer(cfg Config) *Server {
	cfg.applyDefaults()

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		port: cfg.Port,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", logger.KeyAddress, s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("metrics server shutdown: %w", shutdownErr)
			return
		}
		logger.Debug("Metrics server stopped")
	})
	return err
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}
