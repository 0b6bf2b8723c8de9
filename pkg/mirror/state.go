package mirror

import (
	"fmt"
	"strings"
	"time"
)

// State is the health verdict of a mirror.
type State int32

const (
	// StateUnknown is reported until the first evaluation.
	StateUnknown State = iota
	StateHealthy
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "unknown":
		*s = StateUnknown
	case "healthy":
		*s = StateHealthy
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("unknown mirror state %q", text)
	}
	return nil
}

// StateListener is told about every state transition. It runs on the
// watcher's tick and must not block.
type StateListener func(mirror string, from, to State)

// Metrics records probe and health metrics for mirrors. A nil Metrics
// disables collection.
type Metrics interface {
	// ObserveProbe records one probe round trip. err is nil on success.
	ObserveProbe(mirror string, d time.Duration, err error)

	// SetState publishes the current state.
	SetState(mirror string, state State)

	// RecordTransition counts a state change.
	RecordTransition(mirror string, from, to State)
}
