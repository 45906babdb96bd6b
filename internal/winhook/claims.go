package winhook

import (
	"sync"

	"keywatch/internal/listener"
)

// Claims records which hook adapter owns which combo of one device. Low
// level hooks see every event system-wide, so exclusivity between hook
// listeners of this process has to be kept here.
type Claims struct {
	mu     sync.Mutex
	combos map[listener.Combo]any
	all    any
}

// NewClaims returns an empty claim table.
func NewClaims() *Claims {
	return &Claims{combos: make(map[listener.Combo]any)}
}

var (
	keyboardClaims = NewClaims()
	mouseClaims    = NewClaims()
)

// Claim gives c to owner.
func (cl *Claims) Claim(owner any, c listener.Combo) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.all != nil && cl.all != owner {
		return listener.ErrAlreadyGrabbed
	}
	if o, ok := cl.combos[c]; ok && o != owner {
		return listener.ErrAlreadyGrabbed
	}
	cl.combos[c] = owner
	return nil
}

// ClaimAll gives the whole device to owner.
func (cl *Claims) ClaimAll(owner any) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.all != nil && cl.all != owner {
		return listener.ErrAlreadyGrabbed
	}
	for _, o := range cl.combos {
		if o != owner {
			return listener.ErrAlreadyGrabbed
		}
	}
	cl.all = owner
	return nil
}

// Release gives c back if owner holds it.
func (cl *Claims) Release(owner any, c listener.Combo) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.combos[c] == owner {
		delete(cl.combos, c)
	}
}

// ReleaseAll drops every claim of owner.
func (cl *Claims) ReleaseAll(owner any) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for c, o := range cl.combos {
		if o == owner {
			delete(cl.combos, c)
		}
	}
	if cl.all == owner {
		cl.all = nil
	}
}
