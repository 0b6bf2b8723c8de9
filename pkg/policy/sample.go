package policy

import "iter"

// Sample is one measurement retained by a watcher.
type Sample struct {
	// Timestamp is the tick at which the sample was taken.
	Timestamp uint64

	// Value is the measured quantity.
	Value float64

	// InViolation is set by the policy during Evaluate. The watcher never
	// reads or sets it.
	InViolation bool
}

// Samples is the ordered view of a window handed to Policy.Evaluate.
// Index 0 is the oldest sample.
//
// The view is invalidated when Evaluate returns: afterwards Len reports 0
// and At panics.
type Samples struct {
	w *window
}

// Len returns the number of samples in the window.
func (s *Samples) Len() int {
	if s == nil || s.w == nil {
		return 0
	}
	return s.w.len()
}

// At returns the i-th oldest sample. It panics if i is out of range.
func (s *Samples) At(i int) Sample {
	return s.w.samples.At(i)
}

// Oldest returns the sample at the head of the window.
func (s *Samples) Oldest() (Sample, bool) {
	if s.Len() == 0 {
		return Sample{}, false
	}
	return s.w.samples.Front(), true
}

// Newest returns the sample at the tail of the window.
func (s *Samples) Newest() (Sample, bool) {
	if s.Len() == 0 {
		return Sample{}, false
	}
	return s.w.samples.Back(), true
}

// All iterates the samples in time order.
func (s *Samples) All() iter.Seq2[int, Sample] {
	return func(yield func(int, Sample) bool) {
		for i := 0; i < s.Len(); i++ {
			if !yield(i, s.w.samples.At(i)) {
				return
			}
		}
	}
}

// Values returns a copy of the sample values in time order.
func (s *Samples) Values() []float64 {
	values := make([]float64, 0, s.Len())
	for _, smp := range s.All() {
		values = append(values, smp.Value)
	}
	return values
}

// MarkViolation sets the InViolation flag of the i-th oldest sample.
// It is the only mutation a policy may make to the window.
func (s *Samples) MarkViolation(i int, violated bool) {
	smp := s.w.samples.At(i)
	smp.InViolation = violated
	s.w.samples.Set(i, smp)
}

// Violations returns the number of samples flagged InViolation.
func (s *Samples) Violations() int {
	n := 0
	for _, smp := range s.All() {
		if smp.InViolation {
			n++
		}
	}
	return n
}
