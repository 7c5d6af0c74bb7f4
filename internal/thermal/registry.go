package thermal

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the monitors of one process, keyed by name.
//
// Each monitor keeps its own enabled flag and lock; the registry only
// indexes them and coordinates shutdown.
type Registry struct {
	mu       sync.RWMutex
	monitors map[string]*Monitor
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		monitors: make(map[string]*Monitor),
	}
}

// Add registers m under its name.
func (r *Registry) Add(m *Monitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.monitors[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMonitor, m.Name())
	}
	r.monitors[m.Name()] = m
	r.order = append(r.order, m.Name())
	return nil
}

// Get returns the monitor registered under name.
func (r *Registry) Get(name string) (*Monitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.monitors[name]
	return m, ok
}

// List returns all monitors in registration order.
func (r *Registry) List() []*Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Monitor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.monitors[name])
	}
	return out
}

// Len returns the number of registered monitors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.monitors)
}

// Snapshots returns a snapshot of every monitor in registration order.
func (r *Registry) Snapshots() []Snapshot {
	monitors := r.List()
	out := make([]Snapshot, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, m.Snapshot())
	}
	return out
}

// StopAll stops every monitor concurrently and waits for all of them.
// A failure to stop one monitor does not prevent the others from stopping.
//
// Returns:
//   - error: The first stop failure, or nil
func (r *Registry) StopAll() error {
	var g errgroup.Group
	for _, m := range r.List() {
		g.Go(m.Stop)
	}
	return g.Wait()
}
