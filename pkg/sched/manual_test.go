package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/clock"
)

func TestManual_FiresOneIntervalAfterRegistration(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewManual(clk)

	var at []uint64
	_, err := m.Register(func() { at = append(at, clk.Now()) }, 100)
	require.NoError(t, err)

	assert.Equal(t, 0, m.RunDue())
	assert.Equal(t, 3, m.Advance(350))
	assert.Equal(t, []uint64{100, 200, 300}, at)
	assert.Equal(t, uint64(350), clk.Now())
}

func TestManual_RejectsZeroInterval(t *testing.T) {
	m := NewManual(clock.NewManual(0))
	_, err := m.Register(func() {}, 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestManual_DeadlineOrder(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewManual(clk)

	var order []string
	_, err := m.Register(func() { order = append(order, "slow") }, 30)
	require.NoError(t, err)
	_, err = m.Register(func() { order = append(order, "fast") }, 20)
	require.NoError(t, err)

	m.Advance(60)
	assert.Equal(t, []string{"fast", "slow", "fast", "slow", "fast"}, order)
}

func TestManual_Unregister(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewManual(clk)

	calls := 0
	reg, err := m.Register(func() { calls++ }, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Registered())

	m.Advance(10)
	reg.Unregister()
	reg.Unregister()
	m.Advance(100)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Registered())
}

func TestManual_UnregisterFromInsidePoller(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewManual(clk)

	calls := 0
	var reg interface{ Unregister() }
	reg, err := m.Register(func() {
		calls++
		reg.Unregister()
	}, 10)
	require.NoError(t, err)

	m.Advance(100)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, m.Registered())
}

func TestManual_RunDueAfterJumpFiresOnce(t *testing.T) {
	clk := clock.NewManual(1000)
	m := NewManual(clk)

	calls := 0
	_, err := m.Register(func() { calls++ }, 10)
	require.NoError(t, err)

	clk.Set(1000)
	assert.Equal(t, 1, m.RunDue())
	assert.Equal(t, 0, m.RunDue())
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), m.Fired())

	clk.Advance(10)
	assert.Equal(t, 1, m.RunDue())
}
