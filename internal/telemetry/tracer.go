package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrMirror     = "mirror.name"
	AttrState      = "mirror.state"
	AttrStoreType  = "store.type"
	AttrBlockID    = "store.block_id"
	AttrProbeSize  = "probe.size"
	AttrProbeOK    = "probe.ok"
	AttrLatencyMs  = "probe.latency_ms"
	AttrWatcher    = "watcher.name"
	AttrSamples    = "watcher.samples"
	AttrViolations = "watcher.violations"
)

// Span names, formatted as <component>.<operation>.
const (
	SpanMirrorProbe    = "mirror.probe"
	SpanStoreWrite     = "store.write"
	SpanStoreRead      = "store.read"
	SpanStoreDelete    = "store.delete"
	SpanPolicyEvaluate = "policy.evaluate"
)

// Mirror returns an attribute for a mirror name.
func Mirror(name string) attribute.KeyValue {
	return attribute.String(AttrMirror, name)
}

// State returns an attribute for a mirror health state.
func State(state string) attribute.KeyValue {
	return attribute.String(AttrState, state)
}

// StoreType returns an attribute for a block store backend.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// BlockID returns an attribute for a probe block key.
func BlockID(id string) attribute.KeyValue {
	return attribute.String(AttrBlockID, id)
}

// ProbeSize returns an attribute for the probe payload size.
func ProbeSize(n int) attribute.KeyValue {
	return attribute.Int(AttrProbeSize, n)
}

// ProbeOK returns an attribute for the probe outcome.
func ProbeOK(ok bool) attribute.KeyValue {
	return attribute.Bool(AttrProbeOK, ok)
}

// LatencyMs returns an attribute for the probe latency.
func LatencyMs(ms float64) attribute.KeyValue {
	return attribute.Float64(AttrLatencyMs, ms)
}

// Watcher returns an attribute for a watcher name.
func Watcher(name string) attribute.KeyValue {
	return attribute.String(AttrWatcher, name)
}

// SampleCount returns an attribute for the retained sample count.
func SampleCount(n int) attribute.KeyValue {
	return attribute.Int(AttrSamples, n)
}

// Violations returns an attribute for the violation count.
func Violations(n int) attribute.KeyValue {
	return attribute.Int(AttrViolations, n)
}

// StartProbeSpan starts the root span of one mirror probe.
func StartProbeSpan(ctx context.Context, mirror, storeType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Mirror(mirror), StoreType(storeType)}, attrs...)
	return StartSpan(ctx, SpanMirrorProbe,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...))
}

// StartStoreSpan starts a child span for a block store operation.
func StartStoreSpan(ctx context.Context, name, blockID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{BlockID(blockID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...))
}
