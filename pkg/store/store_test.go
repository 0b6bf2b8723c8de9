package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  block.Config
	}{
		{"memory", block.Config{Type: block.TypeMemory, Memory: block.MemoryConfig{Delay: time.Millisecond}}},
		{"fs", block.Config{Type: block.TypeFS, FS: block.FSConfig{Path: filepath.Join(dir, "fs")}}},
		{"badger", block.Config{Type: block.TypeBadger, Badger: block.BadgerConfig{InMemory: true}}},
		{"s3", block.Config{Type: block.TypeS3, S3: block.S3Config{Bucket: "b", Region: "us-east-1", AccessKeyID: "k", SecretAccessKey: "s"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(ctx, tt.cfg)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.cfg.Type, s.Type())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, block.Config{Type: "tape"})
	assert.Error(t, err)

	_, err = New(ctx, block.Config{Type: block.TypeFS})
	assert.ErrorContains(t, err, "fs block store")

	_, err = New(ctx, block.Config{Type: block.TypeS3})
	assert.Error(t, err)
}
