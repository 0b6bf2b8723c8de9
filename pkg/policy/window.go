package policy

import "github.com/gammazero/deque"

// window is the time-ordered sample queue of a watcher. Samples enter at the
// back and leave from the front.
type window struct {
	samples  deque.Deque[Sample]
	capacity int
}

func (w *window) len() int {
	return w.samples.Len()
}

// push appends s at the tail. Callers guarantee timestamps never decrease.
func (w *window) push(s Sample) error {
	if w.capacity > 0 && w.samples.Len() >= w.capacity {
		return ErrWindowFull
	}
	w.samples.PushBack(s)
	return nil
}

// prune removes samples taken more than horizon ticks before now and
// returns how many were removed. The window is time-ordered, so the scan
// stops at the first sample still inside the horizon.
func (w *window) prune(now, horizon uint64) int {
	removed := 0
	for w.samples.Len() > 0 {
		head := w.samples.Front()
		if head.Timestamp > now || now-head.Timestamp <= horizon {
			break
		}
		w.samples.PopFront()
		removed++
	}
	return removed
}

func (w *window) snapshot() []Sample {
	out := make([]Sample, w.samples.Len())
	for i := range out {
		out[i] = w.samples.At(i)
	}
	return out
}

func (w *window) clear() {
	w.samples.Clear()
}
