package winhook

import "keywatch/internal/listener"

// Mode selects what a hook adapter captures.
type Mode int

const (
	// ModeKeys suppresses and reports grabbed key combos only.
	ModeKeys Mode = iota
	// ModeKeyboard suppresses and reports every key.
	ModeKeyboard
	// ModeMouse suppresses and reports every button and wheel notch, and
	// pins the cursor when a move callback is set.
	ModeMouse
)

func (m Mode) String() string {
	switch m {
	case ModeKeys:
		return "keys"
	case ModeKeyboard:
		return "keyboard"
	case ModeMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// Motion is one pointer movement while the cursor is pinned. X and Y are
// where the cursor would have gone.
type Motion struct {
	X, Y   int
	DX, DY int
}

type hookEvent struct {
	raw    listener.RawEvent
	motion *Motion
}

// hookState is what the hook procedure reads and writes. The procedure
// runs inside GetMessage on the worker thread, so no locking is needed.
type hookState struct {
	mode    Mode
	capture bool
	mods    ModState
	wheel   Wheel
	grabbed map[listener.Combo]bool
	held    map[uint32]listener.Combo

	originX, originY int32

	queue []hookEvent
}

func newHookState(mode Mode, capture bool) hookState {
	return hookState{
		mode:    mode,
		capture: capture,
		grabbed: make(map[listener.Combo]bool),
		held:    make(map[uint32]listener.Combo),
	}
}

func (s *hookState) push(ev hookEvent) {
	s.queue = append(s.queue, ev)
}

func (s *hookState) pop() (hookEvent, bool) {
	if len(s.queue) == 0 {
		return hookEvent{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// key handles a keyboard transition and reports whether to swallow it.
// Mods are the modifiers held before the transition.
func (s *hookState) key(vk uint32, pressed bool) bool {
	mods := s.mods.Mods()
	isModifier := s.mods.Update(vk, pressed)

	switch s.mode {
	case ModeKeyboard:
		s.push(hookEvent{raw: listener.RawEvent{Code: vk, Mods: mods, Release: !pressed}})
		return true
	case ModeKeys:
		if isModifier {
			return false
		}
		if pressed {
			c := listener.Combo{Code: vk, Mods: mods}
			if !s.grabbed[c] {
				return false
			}
			s.held[vk] = c
			s.push(hookEvent{raw: listener.RawEvent{Code: c.Code, Mods: c.Mods}})
			return true
		}
		// Report the release with the combo that was pressed, even if the
		// modifiers went up first.
		c, ok := s.held[vk]
		if !ok {
			return false
		}
		delete(s.held, vk)
		s.push(hookEvent{raw: listener.RawEvent{Code: c.Code, Mods: c.Mods, Release: true}})
		return true
	}
	return false
}

func (s *hookState) button(code uint32, pressed bool) bool {
	if s.mode != ModeMouse {
		return false
	}
	s.push(hookEvent{raw: listener.RawEvent{Code: code, Release: !pressed}})
	return true
}

func (s *hookState) scroll(delta int16, horizontal bool) bool {
	if s.mode != ModeMouse {
		return false
	}
	for _, b := range s.wheel.Add(delta, horizontal) {
		s.push(hookEvent{raw: listener.RawEvent{Code: b}})
		s.push(hookEvent{raw: listener.RawEvent{Code: b, Release: true}})
	}
	return true
}

func (s *hookState) moved(x, y int32) bool {
	if s.mode != ModeMouse || !s.capture {
		return false
	}
	dx, dy := int(x-s.originX), int(y-s.originY)
	if dx != 0 || dy != 0 {
		s.push(hookEvent{motion: &Motion{X: int(x), Y: int(y), DX: dx, DY: dy}})
	}
	return true
}

func (s *hookState) reset() {
	s.mods.Reset()
	s.wheel = Wheel{}
	s.held = make(map[uint32]listener.Combo)
	s.queue = nil
}
