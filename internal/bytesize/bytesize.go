// Package bytesize provides a byte count type that decodes from
// human-readable strings in configuration files.
package bytesize

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ByteSize is a size in bytes. It accepts plain numbers as well as decimal
// ("4KB", "1MB") and binary ("4KiB", "1MiB") suffixes, case-insensitively.
type ByteSize uint64

const (
	B   ByteSize = 1
	KB  ByteSize = humanize.KByte
	MB  ByteSize = humanize.MByte
	KiB ByteSize = humanize.KiByte
	MiB ByteSize = humanize.MiByte
	GiB ByteSize = humanize.GiByte
)

// ParseByteSize parses s into a ByteSize.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler so that saved configs
// round-trip through the same notation.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String formats the size with binary units, e.g. "4.0 KiB".
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Int returns the size as an int.
func (b ByteSize) Int() int {
	return int(b)
}
