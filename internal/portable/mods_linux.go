package portable

import (
	"golang.design/x/hotkey"

	"keywatch/internal/keymap"
)

// Masks maps modifier names to library modifiers.
var Masks = keymap.ModMasks{
	keymap.Ctrl:    uint32(hotkey.ModCtrl),
	keymap.Shift:   uint32(hotkey.ModShift),
	keymap.Alt:     uint32(hotkey.Mod1),
	keymap.NumLock: uint32(hotkey.Mod2),
	keymap.Super:   uint32(hotkey.Mod4),
}
