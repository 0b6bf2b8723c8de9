// Package mirror monitors the latency of storage mirrors.
//
// A Monitor probes a block store in the background (write, read back,
// delete) and feeds the probe latency to a policy watcher. Its
// LatencyPolicy marks the mirror failed when more than ViolationRatio of
// the samples in the window exceed the latency SLO, and healthy otherwise.
// A probe that errors counts as a sample at the probe timeout.
package mirror
