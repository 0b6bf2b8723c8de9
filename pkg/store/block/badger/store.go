// Package badger provides a BadgerDB-backed block store.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

// Store keeps blocks as BadgerDB values keyed by block key.
type Store struct {
	mu     sync.RWMutex
	db     *badgerdb.DB
	closed bool
}

// New opens the database described by cfg.
func New(cfg block.BadgerConfig) (*Store, error) {
	var opts badgerdb.Options
	switch {
	case cfg.InMemory:
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = badgerdb.DefaultOptions(cfg.Path)
	default:
		return nil, errors.New("badger store: path is required unless in_memory is set")
	}
	// Badger logs through its own logger at INFO by default.
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// view runs fn in a read transaction while holding the store open.
func (s *Store) view(ctx context.Context, fn func(*badgerdb.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(*badgerdb.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return block.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

// WriteBlock stores data under blockKey.
func (s *Store) WriteBlock(ctx context.Context, blockKey string, data []byte) error {
	if err := block.CheckSize(data); err != nil {
		return err
	}
	// Badger keeps a reference to the value until the transaction commits.
	value := append([]byte(nil), data...)
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(blockKey), value)
	})
}

// ReadBlock returns a copy of the stored value.
func (s *Store) ReadBlock(ctx context.Context, blockKey string) ([]byte, error) {
	var data []byte
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(blockKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, block.ErrBlockNotFound
	}
	return data, err
}

// DeleteBlock removes blockKey.
func (s *Store) DeleteBlock(ctx context.Context, blockKey string) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(blockKey))
	})
}

// ListByPrefix iterates the key space under prefix without fetching values.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		keys = scanKeys(txn, []byte(prefix))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func scanKeys(txn *badgerdb.Txn, prefix []byte) []string {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys
}

// DeleteByPrefix removes every key under prefix in one transaction.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		for _, key := range scanKeys(txn, []byte(prefix)) {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// HealthCheck verifies a read transaction can be opened.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.view(ctx, func(*badgerdb.Txn) error { return nil })
	if err != nil && !errors.Is(err, block.ErrStoreClosed) {
		return fmt.Errorf("badger health check failed: %w", err)
	}
	return err
}

// Type returns block.TypeBadger.
func (s *Store) Type() string {
	return block.TypeBadger
}

// Close closes the database. Calling Close again does nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ block.Store = (*Store)(nil)
