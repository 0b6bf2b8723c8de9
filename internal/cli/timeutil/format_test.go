package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{2*time.Hour + 30*time.Minute, "2h 30m 0s"},
		{72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.in), tt.in.String())
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts))
}
