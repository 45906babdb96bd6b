package x11

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

const maxButton = 255

type buttonEvents struct {
	requested requested
}

func newButtonEvents() buttonEvents {
	return buttonEvents{requested: make(requested)}
}

func (b *buttonEvents) translate(a *Adapter, ev xgb.Event) (listener.RawEvent, bool) {
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		code := uint32(e.Detail)
		return listener.RawEvent{Code: code, Mods: b.requested.normalize(code, e.State)}, true
	case xproto.ButtonReleaseEvent:
		code := uint32(e.Detail)
		return listener.RawEvent{Code: code, Mods: b.requested.normalize(code, e.State), Release: true}, true
	}
	return listener.RawEvent{}, false
}

type buttonHandle struct {
	combo listener.Combo
	masks []uint16
}

// buttonGrab holds passive grabs on single button combos.
type buttonGrab struct {
	buttonEvents
}

func (b *buttonGrab) open(a *Adapter) error  { return nil }
func (b *buttonGrab) close(a *Adapter) error { return nil }

func (b *buttonGrab) grab(a *Adapter, c listener.Combo) (listener.Handle, error) {
	if err := validCombo("grab button", c, maxButton); err != nil {
		return nil, err
	}
	h := buttonHandle{combo: c}
	for _, mask := range numLockVariants(uint16(c.Mods)) {
		err := xproto.GrabButtonChecked(a.conn, false, a.root,
			xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
			xproto.GrabModeAsync, xproto.GrabModeAsync,
			xproto.WindowNone, xproto.CursorNone, byte(c.Code), mask).Check()
		if err != nil {
			if rerr := b.release(a, h); rerr != nil {
				a.log.Warn("rolling back partial button grab failed", zap.Stringer("combo", c), zap.Error(rerr))
			}
			return nil, grabError("grab button", err)
		}
		h.masks = append(h.masks, mask)
	}
	b.requested[c] = true
	return h, nil
}

func (b *buttonGrab) ungrab(a *Adapter, h listener.Handle) error {
	bh, ok := h.(buttonHandle)
	if !ok {
		return fmt.Errorf("ungrab button: unexpected handle %T", h)
	}
	delete(b.requested, bh.combo)
	return b.release(a, bh)
}

func (b *buttonGrab) release(a *Adapter, h buttonHandle) error {
	var errs []error
	for _, mask := range h.masks {
		err := xproto.UngrabButtonChecked(a.conn, byte(h.combo.Code), a.root, mask).Check()
		if err != nil {
			errs = append(errs, &listener.PlatformError{Op: "ungrab button", Code: errorCode(err), Err: err})
		}
	}
	return errors.Join(errs...)
}

// pointerButtons binds buttons logically while another capability holds
// the active pointer grab.
type pointerButtons struct {
	buttonEvents
}

func (p *pointerButtons) open(a *Adapter) error  { return nil }
func (p *pointerButtons) close(a *Adapter) error { return nil }

func (p *pointerButtons) grab(a *Adapter, c listener.Combo) (listener.Handle, error) {
	if err := validCombo("grab button", c, maxButton); err != nil {
		return nil, err
	}
	p.requested[c] = true
	return c, nil
}

func (p *pointerButtons) ungrab(a *Adapter, h listener.Handle) error {
	c, ok := h.(listener.Combo)
	if !ok {
		return fmt.Errorf("ungrab button: unexpected handle %T", h)
	}
	delete(p.requested, c)
	return nil
}
