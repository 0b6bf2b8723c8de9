package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"4096", 4096, false},
		{"4KiB", 4 * KiB, false},
		{"4kib", 4 * KiB, false},
		{"4KB", 4 * KB, false},
		{"1MiB", MiB, false},
		{"1 MiB", MiB, false},
		{"  64KiB  ", 64 * KiB, false},
		{"1.5MiB", ByteSize(1.5 * float64(MiB)), false},
		{"", 0, true},
		{"   ", 0, true},
		{"abc", 0, true},
		{"-1KiB", 0, true},
		{"10XB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextRoundTrip(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("4KiB")))
	assert.Equal(t, 4*KiB, b)

	text, err := b.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "4.0 KiB", string(text))

	var back ByteSize
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, b, back)

	assert.Error(t, b.UnmarshalText([]byte("lots")))
	assert.Equal(t, 4096, b.Int())
}
