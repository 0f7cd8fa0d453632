package hub

import "sync"

// registry is a keyed set of handles safe for concurrent use. It
// remembers insertion order so scans are stable across calls, which is
// what makes selector tie-breaking deterministic.
type registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	order   []string
}

func newRegistry[V any]() *registry[V] {
	return &registry[V]{entries: make(map[string]V)}
}

func (r *registry[V]) get(key string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

func (r *registry[V]) set(key string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
}

func (r *registry[V]) delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; !exists {
		return
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the values in insertion order. The slice is the
// caller's to keep; later registry changes do not touch it.
func (r *registry[V]) snapshot() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]V, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key])
	}
	return out
}

func (r *registry[V]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
