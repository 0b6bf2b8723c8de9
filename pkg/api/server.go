package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/api/handlers"
)

// Server serves the status API.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /api/v1/mirrors[/{name}]: Mirror status
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a stopped API server. Defaults are applied here so that
// servers created directly (e.g. in tests) work.
func NewServer(config APIConfig, registry handlers.Registry) *Server {
	config.ApplyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewRouter(registry),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// Returns nil on graceful shutdown, or the listen or shutdown error.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.KeyAddress, ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// The cancelled ctx would abort the shutdown immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. It is safe to call multiple times and
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return shutdownErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.config.Port
}

// Addr returns the listening address once serving, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
