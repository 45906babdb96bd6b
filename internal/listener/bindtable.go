package listener

import (
	"sort"
	"sync"
)

// BindTable maps bind keys to callbacks. It is the only structure shared
// between callers and the worker; the lock is never held across a grab.
type BindTable struct {
	mu    sync.RWMutex
	binds map[BindKey]func()
}

// NewBindTable returns an empty table.
func NewBindTable() *BindTable {
	return &BindTable{binds: make(map[BindKey]func())}
}

// Insert adds a binding. It fails with ErrAlreadyBound instead of
// overwriting.
func (t *BindTable) Insert(key BindKey, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.binds[key]; ok {
		return ErrAlreadyBound
	}
	t.binds[key] = fn
	return nil
}

// Remove deletes a binding and returns its callback.
func (t *BindTable) Remove(key BindKey) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn, ok := t.binds[key]
	if !ok {
		return nil, ErrNotBound
	}
	delete(t.binds, key)
	return fn, nil
}

// Lookup returns the callback bound to key, if any.
func (t *BindTable) Lookup(key BindKey) (func(), bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.binds[key]
	return fn, ok
}

// Has reports whether key is bound.
func (t *BindTable) Has(key BindKey) bool {
	_, ok := t.Lookup(key)
	return ok
}

// DrainAll empties the table and returns the removed keys.
func (t *BindTable) DrainAll() []BindKey {
	t.mu.Lock()
	keys := sortedKeys(t.binds)
	t.binds = make(map[BindKey]func())
	t.mu.Unlock()
	return keys
}

// Keys returns the bound keys in a stable order.
func (t *BindTable) Keys() []BindKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.binds)
}

// Len returns the number of bindings.
func (t *BindTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.binds)
}

func sortedKeys(m map[BindKey]func()) []BindKey {
	keys := make([]BindKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Mods != b.Mods {
			return a.Mods < b.Mods
		}
		return a.Edge < b.Edge
	})
	return keys
}
