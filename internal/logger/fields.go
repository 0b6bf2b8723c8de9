package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use them consistently so that
// log lines can be aggregated and queried across components.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Policy watchers
	KeyWatcher    = "watcher"     // watcher name
	KeySamples    = "samples"     // retained sample count
	KeyMinSamples = "min_samples" // evaluation threshold
	KeyValue      = "value"       // measured value
	KeyViolations = "violations"  // samples flagged in violation
	KeyRatio      = "ratio"       // violations / samples
	KeyInterval   = "interval"    // evaluation interval
	KeyWindow     = "window"      // retention horizon

	// Scheduler
	KeyResolution = "resolution" // executor ticker period
	KeyRuns       = "runs"       // poller invocations so far
	KeyPoller     = "poller"     // poller registration ID
	KeyPanic      = "panic"      // recovered panic value

	// Mirrors and block stores
	KeyMirror    = "mirror"     // mirror name
	KeyState     = "state"      // health state: unknown, healthy, failed
	KeyPrevState = "prev_state" // state before a transition
	KeyStoreType = "store_type" // store backend: memory, fs, badger, s3
	KeyBlockID   = "block_id"   // probe block key
	KeyBucket    = "bucket"     // S3 bucket name
	KeyPath      = "path"       // filesystem path
	KeySize      = "size"       // payload size in bytes

	// Server
	KeyAddress = "address" // listen address
	KeyMethod  = "method"  // HTTP method
	KeyStatus  = "status"  // HTTP status code
	KeyRequest = "req_id"  // chi request ID
	KeyRemote  = "remote"  // peer address
	KeyRoute   = "route"   // URL path

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
)

// Watcher returns a slog.Attr for a watcher name.
func Watcher(name string) slog.Attr {
	return slog.String(KeyWatcher, name)
}

// Mirror returns a slog.Attr for a mirror name.
func Mirror(name string) slog.Attr {
	return slog.String(KeyMirror, name)
}

// State returns a slog.Attr for a health state.
func State(state string) slog.Attr {
	return slog.String(KeyState, state)
}

// StoreType returns a slog.Attr for a block store backend.
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Samples returns a slog.Attr for a sample count.
func Samples(n int) slog.Attr {
	return slog.Int(KeySamples, n)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns a slog.Attr for an error. A nil error yields an empty Attr,
// which handlers drop.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
