// Package block defines the block store interface probed by mirror monitors.
package block

import (
	"context"
	"errors"
)

// MaxBlockSize bounds a single block. Probes use far smaller payloads.
const MaxBlockSize = 4 * 1024 * 1024

// Common errors returned by Store implementations.
var (
	// ErrBlockNotFound is returned when a requested block doesn't exist.
	ErrBlockNotFound = errors.New("block not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrBlockTooLarge is returned by WriteBlock for data over MaxBlockSize.
	ErrBlockTooLarge = errors.New("block exceeds maximum size")
)

// Store is a key/value block storage backend.
//
// Keys are slash-separated paths, e.g. "probe/east/5b0e...". Implementations
// are safe for concurrent use.
type Store interface {
	// WriteBlock stores data under blockKey, replacing any existing block.
	WriteBlock(ctx context.Context, blockKey string, data []byte) error

	// ReadBlock returns the block stored under blockKey.
	// Returns ErrBlockNotFound if the block doesn't exist.
	ReadBlock(ctx context.Context, blockKey string) ([]byte, error)

	// DeleteBlock removes a single block. Deleting a missing block is not
	// an error.
	DeleteBlock(ctx context.Context, blockKey string) error

	// ListByPrefix lists the keys starting with prefix, sorted.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)

	// DeleteByPrefix removes every block whose key starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Type names the backend: memory, fs, badger or s3.
	Type() string

	// Close releases the resources held by the store.
	Close() error
}

// CheckSize returns ErrBlockTooLarge when data cannot be stored as one block.
func CheckSize(data []byte) error {
	if len(data) > MaxBlockSize {
		return ErrBlockTooLarge
	}
	return nil
}
