// Package fs provides a filesystem-backed block store.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

const (
	dirMode  = 0755
	fileMode = 0644
	tmpExt   = ".tmp"
)

// Store keeps each block in a file named by its key below a root directory.
type Store struct {
	mu       sync.RWMutex
	basePath string
	closed   bool
}

// New opens a store rooted at cfg.Path, creating the directory if needed.
func New(cfg block.FSConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("fs store: path is required")
	}
	if err := os.MkdirAll(cfg.Path, dirMode); err != nil {
		return nil, fmt.Errorf("fs store: create %s: %w", cfg.Path, err)
	}

	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fs store: %s is not a directory", cfg.Path)
	}
	return &Store{basePath: cfg.Path}, nil
}

// blockPath maps a key to a path, refusing keys that escape the root.
func (s *Store) blockPath(blockKey string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(blockKey))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("fs store: invalid block key %q", blockKey)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return block.ErrStoreClosed
	}
	return nil
}

// WriteBlock writes to a temporary file and renames it into place.
func (s *Store) WriteBlock(ctx context.Context, blockKey string, data []byte) error {
	if err := block.CheckSize(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.blockPath(blockKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return err
	}

	tmpPath := path + tmpExt
	if err := os.WriteFile(tmpPath, data, fileMode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// ReadBlock reads a block file.
func (s *Store) ReadBlock(ctx context.Context, blockKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.blockPath(blockKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, block.ErrBlockNotFound
	}
	return data, err
}

// DeleteBlock removes a block file.
func (s *Store) DeleteBlock(ctx context.Context, blockKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	path, err := s.blockPath(blockKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ListByPrefix walks the tree and returns matching keys.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.listLocked(ctx, prefix)
}

func (s *Store) listLocked(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tmpExt) {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteByPrefix removes every matching block file.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	keys, err := s.listLocked(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key))); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// HealthCheck verifies the root directory is still present.
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("fs store health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fs store health check failed: %s is not a directory", s.basePath)
	}
	return nil
}

// Type returns block.TypeFS.
func (s *Store) Type() string {
	return block.TypeFS
}

// Close marks the store closed. Files are left in place.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ block.Store = (*Store)(nil)
