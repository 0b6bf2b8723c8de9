package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds fields that are attached to every log line written with
// a *Ctx function.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Watcher   string    // policy watcher name
	Mirror    string    // mirror name
	StoreType string    // block store backend
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for the named mirror.
func NewLogContext(mirror string) *LogContext {
	return &LogContext{
		Mirror:    mirror,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithWatcher returns a copy with the watcher set.
func (lc *LogContext) WithWatcher(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Watcher = name
	}
	return clone
}

// WithStoreType returns a copy with the store type set.
func (lc *LogContext) WithStoreType(storeType string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StoreType = storeType
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
