package winhook

// Mouse button codes reported by the hook adapter.
const (
	ButtonLeft       = 1
	ButtonMiddle     = 2
	ButtonRight      = 3
	ButtonWheelUp    = 4
	ButtonWheelDown  = 5
	ButtonWheelLeft  = 6
	ButtonWheelRight = 7
)

// wheelDelta is one notch of a standard wheel.
const wheelDelta = 120

// Wheel turns wheel deltas into virtual button clicks. High resolution
// wheels send fractions of a notch, which accumulate until a full notch.
type Wheel struct {
	vertical, horizontal int
}

// Add feeds a delta and returns the buttons clicked by it.
func (w *Wheel) Add(delta int16, horizontal bool) []uint32 {
	acc, pos, neg := &w.vertical, uint32(ButtonWheelUp), uint32(ButtonWheelDown)
	if horizontal {
		acc, pos, neg = &w.horizontal, ButtonWheelRight, ButtonWheelLeft
	}
	// A reversal discards the partial notch in the old direction.
	if (*acc > 0 && delta < 0) || (*acc < 0 && delta > 0) {
		*acc = 0
	}
	*acc += int(delta)

	var clicks []uint32
	for *acc >= wheelDelta {
		*acc -= wheelDelta
		clicks = append(clicks, pos)
	}
	for *acc <= -wheelDelta {
		*acc += wheelDelta
		clicks = append(clicks, neg)
	}
	return clicks
}
