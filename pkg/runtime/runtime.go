// Package runtime wires the scheduler, the mirror registry and the HTTP
// servers into one process lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/mirror"
)

// DefaultShutdownTimeout bounds the graceful shutdown when none is set.
const DefaultShutdownTimeout = 30 * time.Second

// ErrShutdownTimeout is returned when components did not stop in time.
var ErrShutdownTimeout = errors.New("runtime: shutdown timed out")

// Executor drives the watchers' ticks. *sched.Executor satisfies it.
type Executor interface {
	Run(ctx context.Context) error
}

// Server is a component served until its context is cancelled.
// *api.Server and *metrics.Server satisfy it.
type Server interface {
	Start(ctx context.Context) error
}

// Runtime owns the process lifecycle:
//
//  1. run the executor
//  2. start every monitor
//  3. serve the API and metrics servers
//  4. on cancellation or server failure, stop servers, monitors and
//     executor, then close the stores
type Runtime struct {
	registry *mirror.Registry
	executor Executor

	apiServer       Server
	metricsServer   Server
	shutdownTimeout time.Duration

	serveOnce sync.Once
}

// New returns a runtime for the given registry and executor.
func New(registry *mirror.Registry, executor Executor) *Runtime {
	return &Runtime{
		registry:        registry,
		executor:        executor,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetAPIServer sets the status API server started by Serve. Nil disables it.
func (r *Runtime) SetAPIServer(s Server) { r.apiServer = s }

// SetMetricsServer sets the metrics server started by Serve. Nil disables it.
func (r *Runtime) SetMetricsServer(s Server) { r.metricsServer = s }

// SetShutdownTimeout sets the graceful shutdown bound. Zero keeps the default.
func (r *Runtime) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		r.shutdownTimeout = d
	}
}

// Registry returns the mirror registry.
func (r *Runtime) Registry() *mirror.Registry {
	return r.registry
}

// Serve blocks until ctx is cancelled or a server fails. It may only be
// called once; later calls return nil immediately.
//
// A cancelled ctx is a clean shutdown and yields nil.
func (r *Runtime) Serve(ctx context.Context) error {
	var err error
	r.serveOnce.Do(func() {
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting DittoWatch runtime", "mirrors", r.registry.Len())

	// The executor outlives ctx so that monitors can unregister on stop.
	execCtx, cancelExec := context.WithCancel(context.Background())
	execDone := make(chan error, 1)
	go func() {
		execDone <- r.executor.Run(execCtx)
	}()

	if err := r.registry.StartAll(ctx); err != nil {
		r.shutdown(nil, nil, cancelExec, execDone)
		return err
	}

	srvCtx, cancelServers := context.WithCancel(context.Background())
	var srvWG sync.WaitGroup
	srvErr := make(chan error, 2)
	r.startServer(srvCtx, &srvWG, srvErr, "API", r.apiServer)
	r.startServer(srvCtx, &srvWG, srvErr, "metrics", r.metricsServer)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", ctx.Err())
	case err := <-srvErr:
		logger.Error("Server failed, initiating shutdown", logger.KeyError, err)
		serveErr = err
	case err := <-execDone:
		// Run only returns early when it was already started elsewhere.
		execDone <- err
		serveErr = fmt.Errorf("executor stopped: %w", err)
	}

	if err := r.shutdown(cancelServers, &srvWG, cancelExec, execDone); err != nil && serveErr == nil {
		serveErr = err
	}

	logger.Info("DittoWatch runtime stopped")
	return serveErr
}

func (r *Runtime) startServer(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error, name string, s Server) {
	if s == nil {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Start(ctx); err != nil {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
}

// shutdown stops everything within the shutdown timeout. Stores are
// closed last, after the executor has dropped every watcher.
func (r *Runtime) shutdown(cancelServers context.CancelFunc, srvWG *sync.WaitGroup, cancelExec context.CancelFunc, execDone <-chan error) error {
	done := make(chan error, 1)
	go func() {
		if cancelServers != nil {
			logger.Debug("Stopping servers")
			cancelServers()
			srvWG.Wait()
		}

		logger.Debug("Stopping monitors")
		r.registry.StopAll()

		cancelExec()
		<-execDone

		logger.Debug("Closing stores")
		done <- r.registry.CloseAll()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Warn("Error closing stores", logger.KeyError, err)
		}
		return err
	case <-time.After(r.shutdownTimeout):
		logger.Error("Graceful shutdown timed out", "timeout", r.shutdownTimeout)
		return ErrShutdownTimeout
	}
}
