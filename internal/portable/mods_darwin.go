package portable

import (
	"golang.design/x/hotkey"

	"keywatch/internal/keymap"
)

// Masks maps modifier names to library modifiers. Super is Command.
var Masks = keymap.ModMasks{
	keymap.Ctrl:  uint32(hotkey.ModCtrl),
	keymap.Shift: uint32(hotkey.ModShift),
	keymap.Alt:   uint32(hotkey.ModOption),
	keymap.Super: uint32(hotkey.ModCmd),
}
