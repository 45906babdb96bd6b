package x11

import (
	"github.com/jezek/xgb/xproto"

	"keywatch/internal/listener"
)

const (
	numLock = xproto.ModMask2
	// modMaskAll keeps the eight modifier bits of an event state and drops
	// the pointer button bits.
	modMaskAll = 0xff
)

// numLockVariants returns the masks to grab for mods so the combo also
// fires with NumLock on.
func numLockVariants(mods uint16) []uint16 {
	if mods&numLock != 0 {
		return []uint16{mods}
	}
	return []uint16{mods, mods | numLock}
}

// requested remembers the combos bound through an adapter so event
// states can be mapped back to the mask that was asked for.
type requested map[listener.Combo]bool

func (r requested) normalize(code uint32, state uint16) uint32 {
	mods := uint32(state & modMaskAll)
	if r[listener.Combo{Code: code, Mods: mods}] || mods&numLock == 0 {
		return mods
	}
	stripped := mods &^ numLock
	if r[listener.Combo{Code: code, Mods: stripped}] {
		return stripped
	}
	return mods
}

func validCombo(op string, c listener.Combo, maxCode uint32) error {
	if c.Code == 0 || c.Code > maxCode || c.Mods > modMaskAll {
		return &listener.PlatformError{Op: op, Code: badValue}
	}
	return nil
}
