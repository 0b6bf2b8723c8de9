package mirror

import (
	"sync"
	"time"
)

// fakeSource publishes probe results set by the test.
type fakeSource struct {
	mu     sync.Mutex
	seq    uint64
	result ProbeResult
}

func (f *fakeSource) set(latency time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.result = ProbeResult{Seq: f.seq, At: time.Now(), Latency: latency, Err: err}
}

func (f *fakeSource) Latest() (ProbeResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.seq > 0
}

type transition struct {
	from, to State
}

// recordingMetrics implements Metrics.
type recordingMetrics struct {
	mu          sync.Mutex
	probes      int
	probeErrors int
	states      map[string]State
	transitions []transition
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{states: make(map[string]State)}
}

func (m *recordingMetrics) ObserveProbe(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	if err != nil {
		m.probeErrors++
	}
}

func (m *recordingMetrics) SetState(mirror string, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[mirror] = s
}

func (m *recordingMetrics) RecordTransition(_ string, from, to State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, transition{from, to})
}
