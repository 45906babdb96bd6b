// Package listener grants a process exclusive access to key and button
// combinations through a platform event source owned by a dedicated worker
// thread.
package listener

import "fmt"

// Edge selects which transition of a combo a binding reacts to.
type Edge uint8

const (
	Press Edge = iota
	Release
)

func (e Edge) String() string {
	if e == Release {
		return "release"
	}
	return "press"
}

// Combo is the physical part of a binding: a platform key or button code
// plus a platform modifier mask.
type Combo struct {
	Code uint32
	Mods uint32
}

func (c Combo) String() string {
	return fmt.Sprintf("%d/%#x", c.Code, c.Mods)
}

// BindKey identifies one binding.
type BindKey struct {
	Combo
	Edge Edge
}

// Key builds a BindKey from its parts.
func Key(code, mods uint32, edge Edge) BindKey {
	return BindKey{Combo: Combo{Code: code, Mods: mods}, Edge: edge}
}

func (k BindKey) String() string {
	return fmt.Sprintf("%s:%s", k.Combo, k.Edge)
}

// RawEvent is what an event source produces for every grabbed transition.
type RawEvent struct {
	Code    uint32
	Mods    uint32
	Release bool
}

// Key returns the binding an event would trigger.
func (e RawEvent) Key() BindKey {
	edge := Press
	if e.Release {
		edge = Release
	}
	return Key(e.Code, e.Mods, edge)
}

// State is the lifecycle state of a Listener.
type State int32

const (
	Idle State = iota
	Living
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Living:
		return "living"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
