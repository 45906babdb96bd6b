package x11

import (
	"errors"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

const maxKeycode = 255

// keyEvents translates key events for combos bound through the adapter.
type keyEvents struct {
	requested   requested
	transparent bool
}

func newKeyEvents(transparent bool) keyEvents {
	return keyEvents{requested: make(requested), transparent: transparent}
}

func (k *keyEvents) translate(a *Adapter, ev xgb.Event) (listener.RawEvent, bool) {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		if k.transparent {
			// The keyboard is frozen until the press is replayed to the
			// focused client.
			xproto.AllowEvents(a.conn, xproto.AllowReplayKeyboard, e.Time)
		}
		code := uint32(e.Detail)
		return listener.RawEvent{Code: code, Mods: k.requested.normalize(code, e.State)}, true
	case xproto.KeyReleaseEvent:
		code := uint32(e.Detail)
		return listener.RawEvent{Code: code, Mods: k.requested.normalize(code, e.State), Release: true}, true
	}
	return listener.RawEvent{}, false
}

// keyRequests issues passive key grabs on the root window.
type keyRequests interface {
	grabKey(mods uint16, key xproto.Keycode, keyboardMode byte) error
	ungrabKey(mods uint16, key xproto.Keycode) error
}

type connKeys struct {
	a *Adapter
}

func (c connKeys) grabKey(mods uint16, key xproto.Keycode, keyboardMode byte) error {
	return xproto.GrabKeyChecked(c.a.conn, false, c.a.root, mods, key,
		xproto.GrabModeAsync, keyboardMode).Check()
}

func (c connKeys) ungrabKey(mods uint16, key xproto.Keycode) error {
	return xproto.UngrabKeyChecked(c.a.conn, key, c.a.root, mods).Check()
}

func (a *Adapter) keys() keyRequests {
	if a.keyReq != nil {
		return a.keyReq
	}
	return connKeys{a: a}
}

// keyHandle is what releasing a passive key grab needs.
type keyHandle struct {
	combo listener.Combo
	masks []uint16
}

// keyGrab holds passive grabs on single key combos.
type keyGrab struct {
	keyEvents
}

func (k *keyGrab) open(a *Adapter) error {
	if k.transparent {
		a.log.Info("transparent key grabs enabled")
	}
	return nil
}

func (k *keyGrab) close(a *Adapter) error {
	return nil
}

func (k *keyGrab) grab(a *Adapter, c listener.Combo) (listener.Handle, error) {
	if err := validCombo("grab key", c, maxKeycode); err != nil {
		return nil, err
	}
	keyboardMode := byte(xproto.GrabModeAsync)
	if k.transparent {
		keyboardMode = xproto.GrabModeSync
	}

	h := keyHandle{combo: c}
	for _, mask := range numLockVariants(uint16(c.Mods)) {
		err := a.keys().grabKey(mask, xproto.Keycode(c.Code), keyboardMode)
		if err != nil {
			if rerr := k.release(a, h); rerr != nil {
				a.log.Warn("rolling back partial key grab failed", zap.Stringer("combo", c), zap.Error(rerr))
			}
			return nil, grabError("grab key", err)
		}
		h.masks = append(h.masks, mask)
	}
	k.requested[c] = true
	return h, nil
}

func (k *keyGrab) ungrab(a *Adapter, h listener.Handle) error {
	kh, ok := h.(keyHandle)
	if !ok {
		return fmt.Errorf("ungrab key: unexpected handle %T", h)
	}
	delete(k.requested, kh.combo)
	return k.release(a, kh)
}

func (k *keyGrab) release(a *Adapter, h keyHandle) error {
	var errs []error
	for _, mask := range h.masks {
		err := a.keys().ungrabKey(mask, xproto.Keycode(h.combo.Code))
		if err != nil {
			errs = append(errs, &listener.PlatformError{Op: "ungrab key", Code: errorCode(err), Err: err})
		}
	}
	return errors.Join(errs...)
}

// keyboardGrab actively grabs the whole keyboard. Combos are logical and
// never touch the server.
type keyboardGrab struct {
	keyEvents
}

func (k *keyboardGrab) open(a *Adapter) error {
	reply, err := xproto.GrabKeyboard(a.conn, false, a.root, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Reply()
	if err != nil {
		return &listener.PlatformError{Op: "grab keyboard", Code: errorCode(err), Err: err}
	}
	if err := grabStatusError("grab keyboard", reply.Status); err != nil {
		return err
	}
	a.log.Info("keyboard grabbed")
	return nil
}

func (k *keyboardGrab) close(a *Adapter) error {
	if err := xproto.UngrabKeyboardChecked(a.conn, xproto.TimeCurrentTime).Check(); err != nil {
		return &listener.PlatformError{Op: "ungrab keyboard", Code: errorCode(err), Err: err}
	}
	return nil
}

func (k *keyboardGrab) grab(a *Adapter, c listener.Combo) (listener.Handle, error) {
	if err := validCombo("grab key", c, maxKeycode); err != nil {
		return nil, err
	}
	k.requested[c] = true
	return c, nil
}

func (k *keyboardGrab) ungrab(a *Adapter, h listener.Handle) error {
	c, ok := h.(listener.Combo)
	if !ok {
		return fmt.Errorf("ungrab key: unexpected handle %T", h)
	}
	delete(k.requested, c)
	return nil
}
