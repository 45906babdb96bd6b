package winhook

// Modifier bits, the same values RegisterHotKey uses.
const (
	ModAlt      = 0x0001
	ModControl  = 0x0002
	ModShift    = 0x0004
	ModWin      = 0x0008
	ModNoRepeat = 0x4000
)

// modifierKeys maps virtual-key codes of modifier keys to their bit.
var modifierKeys = map[uint32]uint32{
	0x10: ModShift, // VK_SHIFT, VK_LSHIFT, VK_RSHIFT
	0xA0: ModShift,
	0xA1: ModShift,
	0x11: ModControl, // VK_CONTROL, VK_LCONTROL, VK_RCONTROL
	0xA2: ModControl,
	0xA3: ModControl,
	0x12: ModAlt, // VK_MENU, VK_LMENU, VK_RMENU
	0xA4: ModAlt,
	0xA5: ModAlt,
	0x5B: ModWin, // VK_LWIN, VK_RWIN
	0x5C: ModWin,
}

// ModState tracks modifier keys from low-level keyboard events, which
// carry no modifier state of their own.
type ModState struct {
	down map[uint32]bool
}

// Update records a transition. It reports whether vk is a modifier.
func (s *ModState) Update(vk uint32, pressed bool) bool {
	if _, ok := modifierKeys[vk]; !ok {
		return false
	}
	if s.down == nil {
		s.down = make(map[uint32]bool)
	}
	if pressed {
		s.down[vk] = true
	} else {
		delete(s.down, vk)
	}
	return true
}

// Mods returns the current modifier mask.
func (s *ModState) Mods() uint32 {
	var mods uint32
	for vk := range s.down {
		mods |= modifierKeys[vk]
	}
	return mods
}

// Reset forgets every held key.
func (s *ModState) Reset() {
	s.down = nil
}
