// Package storetest provides a conformance suite for block.Store
// implementations.
package storetest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

// StoreFactory creates a fresh store for each test. It should register
// cleanup with t.Cleanup.
type StoreFactory func(t *testing.T) block.Store

// RunConformanceSuite runs every conformance test against stores built by
// factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("WriteRead", func(t *testing.T) { testWriteRead(t, factory(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, factory(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, factory(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory(t)) })
	t.Run("Prefix", func(t *testing.T) { testPrefix(t, factory(t)) })
	t.Run("TooLarge", func(t *testing.T) { testTooLarge(t, factory(t)) })
	t.Run("HealthCheck", func(t *testing.T) { testHealthCheck(t, factory(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, factory(t)) })
}

func testWriteRead(t *testing.T, s block.Store) {
	ctx := t.Context()
	data := bytes.Repeat([]byte("probe"), 1000)

	require.NoError(t, s.WriteBlock(ctx, "probe/east/a", data))

	got, err := s.ReadBlock(ctx, "probe/east/a")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// The store must not alias the caller's buffer.
	data[0] = 'X'
	got, err = s.ReadBlock(ctx, "probe/east/a")
	require.NoError(t, err)
	assert.Equal(t, byte('p'), got[0])
}

func testOverwrite(t *testing.T, s block.Store) {
	ctx := t.Context()
	require.NoError(t, s.WriteBlock(ctx, "k", []byte("one")))
	require.NoError(t, s.WriteBlock(ctx, "k", []byte("two")))

	got, err := s.ReadBlock(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func testNotFound(t *testing.T, s block.Store) {
	_, err := s.ReadBlock(t.Context(), "missing/block")
	assert.ErrorIs(t, err, block.ErrBlockNotFound)
}

func testDelete(t *testing.T, s block.Store) {
	ctx := t.Context()
	require.NoError(t, s.WriteBlock(ctx, "probe/x", []byte("x")))
	require.NoError(t, s.DeleteBlock(ctx, "probe/x"))

	_, err := s.ReadBlock(ctx, "probe/x")
	assert.ErrorIs(t, err, block.ErrBlockNotFound)

	assert.NoError(t, s.DeleteBlock(ctx, "probe/x"), "deleting a missing block is not an error")
}

func testPrefix(t *testing.T, s block.Store) {
	ctx := t.Context()
	for _, key := range []string{"probe/east/2", "probe/east/1", "probe/west/1", "data/1"} {
		require.NoError(t, s.WriteBlock(ctx, key, []byte(key)))
	}

	keys, err := s.ListByPrefix(ctx, "probe/east/")
	require.NoError(t, err)
	assert.Equal(t, []string{"probe/east/1", "probe/east/2"}, keys)

	require.NoError(t, s.DeleteByPrefix(ctx, "probe/"))

	keys, err = s.ListByPrefix(ctx, "probe/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = s.ListByPrefix(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"data/1"}, keys)
}

func testTooLarge(t *testing.T, s block.Store) {
	err := s.WriteBlock(t.Context(), "huge", make([]byte, block.MaxBlockSize+1))
	assert.ErrorIs(t, err, block.ErrBlockTooLarge)
}

func testHealthCheck(t *testing.T, s block.Store) {
	assert.NoError(t, s.HealthCheck(t.Context()))
	assert.NotEmpty(t, s.Type())
}

func testClosed(t *testing.T, s block.Store) {
	ctx := t.Context()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.WriteBlock(ctx, "k", []byte("v")), block.ErrStoreClosed)
	_, err := s.ReadBlock(ctx, "k")
	assert.ErrorIs(t, err, block.ErrStoreClosed)
	assert.ErrorIs(t, s.DeleteBlock(ctx, "k"), block.ErrStoreClosed)
	_, err = s.ListByPrefix(ctx, "")
	assert.ErrorIs(t, err, block.ErrStoreClosed)
	assert.ErrorIs(t, s.DeleteByPrefix(ctx, ""), block.ErrStoreClosed)
	assert.ErrorIs(t, s.HealthCheck(ctx), block.ErrStoreClosed)
}
