// Package memory provides an in-memory block store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

// Store is an in-memory implementation of block.Store. Its latency and
// failures can be injected, which makes it the store of choice for tests
// and demo targets.
type Store struct {
	mu     sync.RWMutex
	blocks map[string][]byte
	closed bool

	delay time.Duration
	fail  error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		blocks: make(map[string][]byte),
	}
}

// SetDelay adds d to every subsequent operation.
func (s *Store) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// SetFailure makes every subsequent operation return err. A nil err clears
// the failure.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// enter applies the injected delay and failure.
func (s *Store) enter(ctx context.Context) error {
	s.mu.RLock()
	delay, fail, closed := s.delay, s.fail, s.closed
	s.mu.RUnlock()

	if closed {
		return block.ErrStoreClosed
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return fail
}

// WriteBlock copies data into the store.
func (s *Store) WriteBlock(ctx context.Context, blockKey string, data []byte) error {
	if err := block.CheckSize(data); err != nil {
		return err
	}
	if err := s.enter(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	s.blocks[blockKey] = append([]byte(nil), data...)
	return nil
}

// ReadBlock returns a copy of the block.
func (s *Store) ReadBlock(ctx context.Context, blockKey string) ([]byte, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, block.ErrStoreClosed
	}
	data, ok := s.blocks[blockKey]
	if !ok {
		return nil, block.ErrBlockNotFound
	}
	return append([]byte(nil), data...), nil
}

// DeleteBlock removes a block.
func (s *Store) DeleteBlock(ctx context.Context, blockKey string) error {
	if err := s.enter(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	delete(s.blocks, blockKey)
	return nil
}

// ListByPrefix lists matching keys in sorted order.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, block.ErrStoreClosed
	}

	var keys []string
	for key := range s.blocks {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteByPrefix removes all matching blocks.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	if err := s.enter(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	for key := range s.blocks {
		if strings.HasPrefix(key, prefix) {
			delete(s.blocks, key)
		}
	}
	return nil
}

// HealthCheck fails only when the store is closed or a failure is injected.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.enter(ctx)
}

// Type returns block.TypeMemory.
func (s *Store) Type() string {
	return block.TypeMemory
}

// Close drops every block.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.blocks = nil
	return nil
}

// BlockCount returns the number of blocks stored.
func (s *Store) BlockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

var _ block.Store = (*Store)(nil)
