package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

// Motion is one pointer movement while the cursor is captured. The pointer
// itself stays parked at the capture origin; X and Y are where it would be.
type Motion struct {
	X, Y   int
	DX, DY int
}

// motionFrom computes the movement from origin to (x, y). It returns false
// for the event generated by warping back to the origin.
func motionFrom(originX, originY, x, y int16) (Motion, bool) {
	dx, dy := int(x)-int(originX), int(y)-int(originY)
	if dx == 0 && dy == 0 {
		return Motion{}, false
	}
	return Motion{X: int(x), Y: int(y), DX: dx, DY: dy}, true
}

// cursorCapture actively grabs the pointer and pins it to where it was on
// open.
type cursorCapture struct {
	onMove           func(Motion)
	originX, originY int16
}

func (c *cursorCapture) open(a *Adapter) error {
	pointer, err := xproto.QueryPointer(a.conn, a.root).Reply()
	if err != nil {
		return &listener.PlatformError{Op: "query pointer", Code: errorCode(err), Err: err}
	}
	c.originX, c.originY = pointer.RootX, pointer.RootY

	reply, err := xproto.GrabPointer(a.conn, false, a.root,
		xproto.EventMaskPointerMotion|xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		xproto.WindowNone, xproto.CursorNone, xproto.TimeCurrentTime).Reply()
	if err != nil {
		return &listener.PlatformError{Op: "grab pointer", Code: errorCode(err), Err: err}
	}
	if err := grabStatusError("grab pointer", reply.Status); err != nil {
		return err
	}
	a.log.Info("pointer captured", zap.Int16("x", c.originX), zap.Int16("y", c.originY))
	return nil
}

func (c *cursorCapture) close(a *Adapter) error {
	if err := xproto.UngrabPointerChecked(a.conn, xproto.TimeCurrentTime).Check(); err != nil {
		return &listener.PlatformError{Op: "ungrab pointer", Code: errorCode(err), Err: err}
	}
	return nil
}

func (c *cursorCapture) translate(a *Adapter, ev xgb.Event) (listener.RawEvent, bool) {
	e, ok := ev.(xproto.MotionNotifyEvent)
	if !ok {
		return listener.RawEvent{}, false
	}
	m, moved := motionFrom(c.originX, c.originY, e.RootX, e.RootY)
	if !moved {
		return listener.RawEvent{}, false
	}
	xproto.WarpPointer(a.conn, xproto.WindowNone, a.root, 0, 0, 0, 0, c.originX, c.originY)
	if c.onMove != nil {
		c.onMove(m)
	}
	return listener.RawEvent{}, false
}
