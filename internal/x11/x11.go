// Package x11 implements listener adapters on top of an X display
// connection.
package x11

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

const wakeAtomName = "_KEYWATCH_WAKE"

var errNoCombos = errors.New("this capture binds no combos")

// capability is one kind of grab sharing the adapter's connection.
type capability interface {
	open(a *Adapter) error
	close(a *Adapter) error
	// translate turns an X event into a raw event when it belongs to the
	// capability and should be dispatched.
	translate(a *Adapter, ev xgb.Event) (listener.RawEvent, bool)
}

// grabber is a capability that owns combos.
type grabber interface {
	capability
	grab(a *Adapter, c listener.Combo) (listener.Handle, error)
	ungrab(a *Adapter, h listener.Handle) error
}

// Option configures an adapter.
type Option func(*config)

type config struct {
	display     string
	transparent bool
	skipRepeat  bool
	onMove      func(Motion)
	log         *zap.Logger
}

// Display selects the X display. Empty means $DISPLAY.
func Display(name string) Option {
	return func(c *config) { c.display = name }
}

// Transparent lets grabbed keys through to the focused client as well.
func Transparent(on bool) Option {
	return func(c *config) { c.transparent = on }
}

// SkipRepeat drops the release/press pairs generated by key auto-repeat.
func SkipRepeat(on bool) Option {
	return func(c *config) { c.skipRepeat = on }
}

// OnMove receives pointer motion while the cursor is captured. It runs on
// the listener's worker.
func OnMove(fn func(Motion)) Option {
	return func(c *config) { c.onMove = fn }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// Adapter is a listener.Adapter driving one X connection.
type Adapter struct {
	cfg  config
	caps []capability
	log  *zap.Logger

	mu       sync.Mutex
	conn     *xgb.Conn
	root     xproto.Window
	wakeWin  xproto.Window
	wakeAtom xproto.Atom

	pending xgb.Event
	keyReq  keyRequests
}

var _ listener.Adapter = (*Adapter)(nil)

func newAdapter(opts []Option, build func(cfg config) []capability) *Adapter {
	cfg := config{log: zap.L()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Adapter{
		cfg:  cfg,
		caps: build(cfg),
		log:  cfg.log.With(zap.String("component", "x11")),
	}
}

// NewKeyGrab grabs individual key combos.
func NewKeyGrab(opts ...Option) *Adapter {
	return newAdapter(opts, func(cfg config) []capability {
		return []capability{&keyGrab{keyEvents: newKeyEvents(cfg.transparent)}}
	})
}

// NewKeyboardGrab grabs the whole keyboard on Start. Binds are logical.
func NewKeyboardGrab(opts ...Option) *Adapter {
	return newAdapter(opts, func(cfg config) []capability {
		return []capability{&keyboardGrab{keyEvents: newKeyEvents(false)}}
	})
}

// NewButtonGrab grabs individual mouse button combos.
func NewButtonGrab(opts ...Option) *Adapter {
	return newAdapter(opts, func(cfg config) []capability {
		return []capability{&buttonGrab{buttonEvents: newButtonEvents()}}
	})
}

// NewCursorCapture grabs the pointer and reports motion to OnMove.
func NewCursorCapture(opts ...Option) *Adapter {
	return newAdapter(opts, func(cfg config) []capability {
		return []capability{&cursorCapture{onMove: cfg.onMove}}
	})
}

// NewMouseGrab grabs the pointer: buttons are bindable and motion goes to
// OnMove.
func NewMouseGrab(opts ...Option) *Adapter {
	return newAdapter(opts, func(cfg config) []capability {
		return []capability{
			&pointerButtons{buttonEvents: newButtonEvents()},
			&cursorCapture{onMove: cfg.onMove},
		}
	})
}

func (a *Adapter) Open() error {
	conn, err := xgb.NewConnDisplay(a.cfg.display)
	if err != nil {
		return &listener.PlatformError{Op: "open display", Code: -1, Err: err}
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)

	win, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("allocate wake window: %w", err)
	}
	err = xproto.CreateWindowChecked(conn, 0, win, screen.Root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, screen.RootVisual, 0, nil).Check()
	if err != nil {
		conn.Close()
		return &listener.PlatformError{Op: "create wake window", Code: errorCode(err), Err: err}
	}
	atom, err := xproto.InternAtom(conn, false, uint16(len(wakeAtomName)), wakeAtomName).Reply()
	if err != nil {
		conn.Close()
		return &listener.PlatformError{Op: "intern wake atom", Code: errorCode(err), Err: err}
	}

	a.mu.Lock()
	a.conn, a.root = conn, screen.Root
	a.wakeWin, a.wakeAtom = win, atom.Atom
	a.mu.Unlock()

	for i, c := range a.caps {
		if err := c.open(a); err != nil {
			for j := i - 1; j >= 0; j-- {
				a.caps[j].close(a)
			}
			a.disconnect()
			return err
		}
	}
	a.log.Info("display opened", zap.String("display", a.cfg.display), zap.Int("capabilities", len(a.caps)))
	return nil
}

func (a *Adapter) Close() error {
	var errs []error
	for i := len(a.caps) - 1; i >= 0; i-- {
		if err := a.caps[i].close(a); err != nil {
			errs = append(errs, err)
		}
	}
	a.disconnect()
	a.log.Info("display closed")
	return errors.Join(errs...)
}

func (a *Adapter) disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return
	}
	xproto.DestroyWindow(a.conn, a.wakeWin)
	a.conn.Close()
	a.conn = nil
	a.pending = nil
}

func (a *Adapter) Grab(c listener.Combo) (listener.Handle, error) {
	g := a.grabber()
	if g == nil {
		return nil, &listener.PlatformError{Op: "grab", Code: -1, Err: errNoCombos}
	}
	return g.grab(a, c)
}

func (a *Adapter) Ungrab(h listener.Handle) error {
	g := a.grabber()
	if g == nil {
		return errNoCombos
	}
	return g.ungrab(a, h)
}

func (a *Adapter) grabber() grabber {
	for _, c := range a.caps {
		if g, ok := c.(grabber); ok {
			return g
		}
	}
	return nil
}

func (a *Adapter) Next() (listener.RawEvent, error) {
	for {
		ev, err := a.nextEvent()
		if err != nil {
			return listener.RawEvent{}, err
		}
		if cm, ok := ev.(xproto.ClientMessageEvent); ok && cm.Type == a.wakeAtom {
			return listener.RawEvent{}, listener.ErrWoken
		}
		if a.cfg.skipRepeat && a.isRepeat(ev) {
			continue
		}
		for _, c := range a.caps {
			if raw, ok := c.translate(a, ev); ok {
				return raw, nil
			}
		}
	}
}

func (a *Adapter) nextEvent() (xgb.Event, error) {
	if a.pending != nil {
		ev := a.pending
		a.pending = nil
		return ev, nil
	}
	ev, xerr := a.conn.WaitForEvent()
	if xerr != nil {
		return nil, &listener.PlatformError{Op: "event", Code: errorCode(xerr), Err: xerr}
	}
	if ev == nil {
		return nil, listener.ErrClosed
	}
	return ev, nil
}

// isRepeat reports whether ev is the release half of an auto-repeat pair.
// The press half is consumed too.
func (a *Adapter) isRepeat(ev xgb.Event) bool {
	rel, ok := ev.(xproto.KeyReleaseEvent)
	if !ok {
		return false
	}
	next, _ := a.conn.PollForEvent()
	if press, ok := next.(xproto.KeyPressEvent); ok && press.Detail == rel.Detail && press.Time == rel.Time {
		return true
	}
	if next != nil {
		a.pending = next
	}
	return false
}

// Wake holds the lock while sending so disconnect cannot close the
// connection underneath it.
func (a *Adapter) Wake() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	return xproto.SendEventChecked(a.conn, false, a.wakeWin, wakeEventMask,
		wakeEvent(a.wakeWin, a.wakeAtom)).Check()
}

// wakeEventMask sends the wake message to the window's owner only.
const wakeEventMask = xproto.EventMaskNoEvent

// wakeEvent encodes the ClientMessage that interrupts WaitForEvent.
func wakeEvent(win xproto.Window, atom xproto.Atom) string {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(make([]uint32, 5)),
	}
	return string(ev.Bytes())
}

// X protocol error codes.
const (
	badValue  = 2
	badWindow = 3
	badMatch  = 8
	badAccess = 10
)

func errorCode(err error) int {
	switch err.(type) {
	case xproto.ValueError:
		return badValue
	case xproto.WindowError:
		return badWindow
	case xproto.MatchError:
		return badMatch
	case xproto.AccessError:
		return badAccess
	default:
		return -1
	}
}

// grabError maps a failed grab request. BadAccess means another client
// holds the combo.
func grabError(op string, err error) error {
	if errorCode(err) == badAccess {
		return fmt.Errorf("%s: %w", op, listener.ErrAlreadyGrabbed)
	}
	return &listener.PlatformError{Op: op, Code: errorCode(err), Err: err}
}

// grabStatusError maps the status of an active keyboard or pointer grab.
func grabStatusError(op string, status byte) error {
	switch status {
	case xproto.GrabStatusSuccess:
		return nil
	case xproto.GrabStatusAlreadyGrabbed, xproto.GrabStatusFrozen:
		return fmt.Errorf("%s: %w", op, listener.ErrAlreadyGrabbed)
	default:
		return &listener.PlatformError{Op: op, Code: int(status)}
	}
}
