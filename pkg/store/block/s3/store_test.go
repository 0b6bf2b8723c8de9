package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittowatch/pkg/store/block"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"wrapped not found", fmt.Errorf("get: %w", &types.NotFound{}), true},
		{"generic api error", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain error", errors.New("404 somewhere in the text"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestNewFromConfig_RequiresBucket(t *testing.T) {
	_, err := NewFromConfig(t.Context(), block.S3Config{})
	assert.Error(t, err)
}

func TestStore_ClosedWithoutNetwork(t *testing.T) {
	s, err := NewFromConfig(t.Context(), block.S3Config{
		Bucket:          "probes",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:1",
		ForcePathStyle:  true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		KeyPrefix:       "dittowatch/",
	})
	require.NoError(t, err)
	assert.Equal(t, block.TypeS3, s.Type())
	assert.Equal(t, "probes", s.Bucket())
	assert.Equal(t, "dittowatch/probe/a", s.fullKey("probe/a"))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.WriteBlock(t.Context(), "k", []byte("v")), block.ErrStoreClosed)
	assert.ErrorIs(t, s.HealthCheck(t.Context()), block.ErrStoreClosed)
}
