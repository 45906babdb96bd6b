// Package winhook implements listener adapters on the Win32 message loop:
// RegisterHotKey for single combos and low-level keyboard and mouse hooks
// for everything else.
package winhook

import (
	"fmt"
	"sync"
)

// Registry maps OS thread ids to the value owning that thread. Hook
// procedures have a fixed signature and run on the installing thread, so
// the thread id is how they find their adapter.
type Registry[T any] struct {
	mu sync.RWMutex
	m  map[uint32]T
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{m: make(map[uint32]T)}
}

// Put registers v for thread tid.
func (r *Registry[T]) Put(tid uint32, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[tid]; ok {
		return fmt.Errorf("thread %d already registered", tid)
	}
	r.m[tid] = v
	return nil
}

// Get returns the value registered for tid.
func (r *Registry[T]) Get(tid uint32) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[tid]
	return v, ok
}

// Delete forgets tid.
func (r *Registry[T]) Delete(tid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, tid)
}

// Len returns the number of registered threads.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
