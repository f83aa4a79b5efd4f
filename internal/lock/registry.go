// Package lock provides per-entity mutual exclusion.
package lock

import (
	"sync"
	"time"
)

type entry struct {
	mu       sync.Mutex
	refs     int
	lastUsed time.Time
}

// Registry hands out one mutex per key, created on first use. Entries nobody
// holds or waits on are removed by Sweep once they have been idle long enough.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Acquire blocks until the lock for key is held and returns its release
// function. Release must be called exactly once.
func (r *Registry) Acquire(key string) func() {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			r.mu.Lock()
			e.refs--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
}

// Sweep removes entries that are unreferenced and unused for at least idle.
// It returns the number of removed entries.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for key, e := range r.entries {
		if e.refs == 0 && !e.lastUsed.After(cutoff) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
