package runtime

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/api"
	"github.com/marmos91/dittowatch/pkg/clock"
	"github.com/marmos91/dittowatch/pkg/mirror"
	"github.com/marmos91/dittowatch/pkg/policy"
	"github.com/marmos91/dittowatch/pkg/sched"
	"github.com/marmos91/dittowatch/pkg/store/block/memory"
)

func newRegistry(t *testing.T, exec *sched.Executor, clk policy.Clock, names ...string) *mirror.Registry {
	t.Helper()
	reg := mirror.NewRegistry()
	for _, name := range names {
		m, err := mirror.NewMonitor(mirror.Config{
			Name:          name,
			ProbeInterval: 10 * time.Millisecond,
			LatencySLO:    time.Second,
			ProbeTimeout:  2 * time.Second,
			Window:        time.Second,
			MinSamples:    2,
		}, memory.New(), clk, exec)
		require.NoError(t, err)
		require.NoError(t, reg.Add(m))
	}
	return reg
}

func TestServeUntilCancelled(t *testing.T) {
	clk := clock.NewMonotonic()
	exec := sched.NewExecutor(clk, 5*time.Millisecond)
	reg := newRegistry(t, exec, clk, "a", "b")

	rt := New(reg, exec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Serve(ctx) }()

	require.Eventually(t, func() bool {
		for _, st := range reg.Statuses() {
			if st.State != mirror.StateHealthy {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	<-exec.Done()
	assert.Zero(t, exec.Len())
	for _, m := range reg.List() {
		assert.ErrorIs(t, m.Start(context.Background()), policy.ErrClosed)
	}

	// Second call is a no-op.
	assert.NoError(t, rt.Serve(context.Background()))
}

func TestServeStopsOnServerFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()
	busy := ln.Addr().(*net.TCPAddr).Port

	clk := clock.NewMonotonic()
	exec := sched.NewExecutor(clk, 5*time.Millisecond)
	reg := newRegistry(t, exec, clk, "a")

	rt := New(reg, exec)
	rt.SetAPIServer(api.NewServer(api.APIConfig{Port: busy}, reg))

	done := make(chan error, 1)
	go func() { done <- rt.Serve(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API server")
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	<-exec.Done()
}

type stuckServer struct{ release chan struct{} }

func (s *stuckServer) Start(ctx context.Context) error {
	<-s.release
	return nil
}

func TestServeShutdownTimeout(t *testing.T) {
	clk := clock.NewMonotonic()
	exec := sched.NewExecutor(clk, 5*time.Millisecond)
	reg := newRegistry(t, exec, clk, "a")

	stuck := &stuckServer{release: make(chan struct{})}
	defer close(stuck.release)

	rt := New(reg, exec)
	rt.SetMetricsServer(stuck)
	rt.SetShutdownTimeout(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rt.Serve(ctx)
	assert.True(t, errors.Is(err, ErrShutdownTimeout), "got %v", err)
}

func TestServeFailsToStartMonitors(t *testing.T) {
	clk := clock.NewMonotonic()
	exec := sched.NewExecutor(clk, 5*time.Millisecond)
	reg := newRegistry(t, exec, clk, "a")
	require.NoError(t, reg.CloseAll())

	err := New(reg, exec).Serve(context.Background())
	require.ErrorIs(t, err, policy.ErrClosed)
	<-exec.Done()
}
