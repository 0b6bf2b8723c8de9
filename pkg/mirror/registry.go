package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateMirror is returned by Add for a name already registered.
	ErrDuplicateMirror = errors.New("mirror: duplicate mirror name")

	// ErrMirrorNotFound is returned for an unknown mirror name.
	ErrMirrorNotFound = errors.New("mirror: not found")
)

// Registry is a named set of monitors. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	monitors map[string]*Monitor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{monitors: make(map[string]*Monitor)}
}

// Add registers m under its name.
func (r *Registry) Add(m *Monitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.monitors[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMirror, m.Name())
	}
	r.monitors[m.Name()] = m
	return nil
}

// Get returns the monitor called name.
func (r *Registry) Get(name string) (*Monitor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.monitors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMirrorNotFound, name)
	}
	return m, nil
}

// List returns the monitors sorted by name.
func (r *Registry) List() []*Monitor {
	r.mu.RLock()
	list := make([]*Monitor, 0, len(r.monitors))
	for _, m := range r.monitors {
		list = append(list, m)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// Len returns the number of registered monitors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.monitors)
}

// Statuses returns the status of every monitor, sorted by name.
func (r *Registry) Statuses() []Status {
	list := r.List()
	out := make([]Status, 0, len(list))
	for _, m := range list {
		out = append(out, m.Status())
	}
	return out
}

// Status returns the status of the monitor called name.
func (r *Registry) Status(name string) (Status, error) {
	m, err := r.Get(name)
	if err != nil {
		return Status{}, err
	}
	return m.Status(), nil
}

// Healthy reports whether no monitor is in the failed state. Mirrors not
// yet evaluated count as healthy.
func (r *Registry) Healthy() bool {
	for _, m := range r.List() {
		if m.State() == StateFailed {
			return false
		}
	}
	return true
}

// StartAll starts every monitor. It stops at the first failure and leaves
// the monitors already started running.
func (r *Registry) StartAll(ctx context.Context) error {
	for _, m := range r.List() {
		if err := m.Start(ctx); err != nil {
			return fmt.Errorf("start mirror %q: %w", m.Name(), err)
		}
	}
	return nil
}

// StopAll stops every monitor.
func (r *Registry) StopAll() {
	for _, m := range r.List() {
		m.Stop()
	}
}

// CloseAll closes every monitor and returns the joined errors.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, m := range r.List() {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
