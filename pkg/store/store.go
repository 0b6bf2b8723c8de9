// Package store builds block stores from configuration.
package store

import (
	"context"
	"fmt"

	"github.com/marmos91/dittowatch/internal/logger"
	"github.com/marmos91/dittowatch/pkg/store/block"
	"github.com/marmos91/dittowatch/pkg/store/block/badger"
	"github.com/marmos91/dittowatch/pkg/store/block/fs"
	"github.com/marmos91/dittowatch/pkg/store/block/memory"
	"github.com/marmos91/dittowatch/pkg/store/block/s3"
)

// New creates the store selected by cfg.Type.
func New(ctx context.Context, cfg block.Config) (block.Store, error) {
	var (
		s   block.Store
		err error
	)

	switch cfg.Type {
	case block.TypeMemory:
		m := memory.New()
		m.SetDelay(cfg.Memory.Delay)
		s = m
	case block.TypeFS:
		s, err = fs.New(cfg.FS)
	case block.TypeBadger:
		s, err = badger.New(cfg.Badger)
	case block.TypeS3:
		s, err = s3.NewFromConfig(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown block store type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s block store: %w", cfg.Type, err)
	}

	logger.Debug("Block store created", logger.KeyStoreType, cfg.Type)
	return s, nil
}
