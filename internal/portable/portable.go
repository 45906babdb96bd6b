// Package portable implements a listener adapter on golang.design/x/hotkey,
// which works wherever that library does, macOS included.
package portable

import (
	"fmt"
	"math/bits"
	"sync"

	"go.uber.org/zap"
	"golang.design/x/hotkey"

	"keywatch/internal/listener"
)

// registration is one registered hotkey and its fan-in goroutine.
type registration struct {
	hk    *hotkey.Hotkey
	combo listener.Combo
	stop  chan struct{}
	done  chan struct{}
}

// Adapter registers combos as library hotkeys. Codes are the library's
// platform key values; each set bit of Mods is one library modifier.
// Register failures are reported as ErrAlreadyGrabbed since the library
// does not expose their cause.
type Adapter struct {
	log    *zap.Logger
	events chan listener.RawEvent
	wake   chan struct{}

	mu   sync.Mutex
	regs map[*registration]struct{}
}

var _ listener.Adapter = (*Adapter)(nil)

// New returns a portable adapter.
func New(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.L()
	}
	return &Adapter{
		log:    log.With(zap.String("component", "portable")),
		events: make(chan listener.RawEvent, 64),
		wake:   make(chan struct{}, 1),
		regs:   make(map[*registration]struct{}),
	}
}

// modifiers splits a mask into library modifiers.
func modifiers(mask uint32) []hotkey.Modifier {
	var mods []hotkey.Modifier
	for mask != 0 {
		bit := uint32(1) << bits.TrailingZeros32(mask)
		mods = append(mods, hotkey.Modifier(bit))
		mask &^= bit
	}
	return mods
}

func (a *Adapter) Open() error {
	a.log.Info("portable hotkeys ready")
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	regs := make([]*registration, 0, len(a.regs))
	for r := range a.regs {
		regs = append(regs, r)
	}
	a.mu.Unlock()

	var firstErr error
	for _, r := range regs {
		if err := a.release(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	// Drop events of the finished run.
	for {
		select {
		case <-a.events:
		default:
			return firstErr
		}
	}
}

func (a *Adapter) Grab(c listener.Combo) (listener.Handle, error) {
	hk := hotkey.New(modifiers(c.Mods), hotkey.Key(c.Code))
	if err := register(hk); err != nil {
		return nil, fmt.Errorf("register %s: %w (%v)", c, listener.ErrAlreadyGrabbed, err)
	}
	r := &registration{hk: hk, combo: c, stop: make(chan struct{}), done: make(chan struct{})}
	go a.forward(r)

	a.mu.Lock()
	a.regs[r] = struct{}{}
	a.mu.Unlock()
	return r, nil
}

func (a *Adapter) Ungrab(h listener.Handle) error {
	r, ok := h.(*registration)
	if !ok {
		return fmt.Errorf("unregister: unexpected handle %T", h)
	}
	return a.release(r)
}

func (a *Adapter) release(r *registration) error {
	a.mu.Lock()
	if _, ok := a.regs[r]; !ok {
		a.mu.Unlock()
		return nil
	}
	delete(a.regs, r)
	a.mu.Unlock()

	close(r.stop)
	<-r.done
	if err := r.hk.Unregister(); err != nil {
		return &listener.PlatformError{Op: "unregister", Code: -1, Err: err}
	}
	return nil
}

// forward fans the hotkey's channels into the adapter's event stream.
func (a *Adapter) forward(r *registration) {
	defer close(r.done)
	for {
		var ev listener.RawEvent
		select {
		case <-r.hk.Keydown():
			ev = listener.RawEvent{Code: r.combo.Code, Mods: r.combo.Mods}
		case <-r.hk.Keyup():
			ev = listener.RawEvent{Code: r.combo.Code, Mods: r.combo.Mods, Release: true}
		case <-r.stop:
			return
		}
		select {
		case a.events <- ev:
		case <-r.stop:
			return
		}
	}
}

func (a *Adapter) Next() (listener.RawEvent, error) {
	select {
	case ev := <-a.events:
		return ev, nil
	case <-a.wake:
		return listener.RawEvent{}, listener.ErrWoken
	}
}

func (a *Adapter) Wake() error {
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}
