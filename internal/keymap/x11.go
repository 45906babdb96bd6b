package keymap

import (
	"fmt"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgbutil"
	"github.com/jezek/xgbutil/keybind"

	"keywatch/internal/listener"
)

// X11Masks are the core protocol modifier bits with the usual mapping of
// Alt, NumLock and Super.
var X11Masks = ModMasks{
	Shift:   xproto.ModMaskShift,
	Ctrl:    xproto.ModMaskControl,
	Alt:     xproto.ModMask1,
	NumLock: xproto.ModMask2,
	Super:   xproto.ModMask4,
}

// X11Resolver resolves keysym names ("a", "F12", "Return") to keycodes of
// a live display.
type X11Resolver struct {
	xu *xgbutil.XUtil
}

// NewX11Resolver connects to display. Empty means $DISPLAY.
func NewX11Resolver(display string) (*X11Resolver, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X display: %w", err)
	}
	keybind.Initialize(xu)
	return &X11Resolver{xu: xu}, nil
}

func (r *X11Resolver) Resolve(s Spec) (listener.Combo, error) {
	mask, err := X11Masks.Mask(s.Mods)
	if err != nil {
		return listener.Combo{}, err
	}
	codes := keybind.StrToKeycodes(r.xu, s.Key)
	if len(codes) == 0 {
		return listener.Combo{}, fmt.Errorf("%w %q", ErrUnknownKey, s.Key)
	}
	return listener.Combo{Code: uint32(codes[0]), Mods: mask}, nil
}

// Close drops the display connection.
func (r *X11Resolver) Close() {
	r.xu.Conn().Close()
}
