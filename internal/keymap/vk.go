package keymap

import (
	"fmt"
	"strconv"
	"strings"

	"keywatch/internal/listener"
)

// WindowsMasks are the MOD_* bits shared by RegisterHotKey and the hook
// adapter.
var WindowsMasks = ModMasks{
	Alt:   0x0001,
	Ctrl:  0x0002,
	Shift: 0x0004,
	Super: 0x0008,
}

var vkNames = map[string]uint32{
	"backspace":   0x08,
	"tab":         0x09,
	"enter":       0x0D,
	"return":      0x0D,
	"pause":       0x13,
	"capslock":    0x14,
	"esc":         0x1B,
	"escape":      0x1B,
	"space":       0x20,
	"pageup":      0x21,
	"pagedown":    0x22,
	"end":         0x23,
	"home":        0x24,
	"left":        0x25,
	"up":          0x26,
	"right":       0x27,
	"down":        0x28,
	"printscreen": 0x2C,
	"insert":      0x2D,
	"delete":      0x2E,
	"numlock":     0x90,
	"scrolllock":  0x91,
}

// VKResolver resolves key names to Windows virtual-key codes.
type VKResolver struct{}

func (VKResolver) Resolve(s Spec) (listener.Combo, error) {
	mask, err := WindowsMasks.Mask(s.Mods)
	if err != nil {
		return listener.Combo{}, err
	}
	vk, ok := virtualKey(strings.ToLower(s.Key))
	if !ok {
		return listener.Combo{}, fmt.Errorf("%w %q", ErrUnknownKey, s.Key)
	}
	return listener.Combo{Code: vk, Mods: mask}, nil
}

func virtualKey(name string) (uint32, bool) {
	if vk, ok := vkNames[name]; ok {
		return vk, true
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c-'a') + 0x41, true
		case c >= '0' && c <= '9':
			return uint32(c-'0') + 0x30, true
		}
	}
	if rest, ok := strings.CutPrefix(name, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 24 {
			return uint32(n-1) + 0x70, true
		}
	}
	return 0, false
}
