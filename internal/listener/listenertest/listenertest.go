// Package listenertest provides an in-memory event source for tests of
// code built on listener.Listener.
package listenertest

import (
	"errors"
	"sync"
	"time"

	"keywatch/internal/listener"
)

// World stands in for the operating system: it knows which adapter owns
// each combo and routes injected input to that owner.
type World struct {
	mu     sync.Mutex
	owners map[listener.Combo]*Adapter
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{owners: make(map[listener.Combo]*Adapter)}
}

func (w *World) claim(c listener.Combo, a *Adapter) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if owner, ok := w.owners[c]; ok && owner != a {
		return listener.ErrAlreadyGrabbed
	}
	w.owners[c] = a
	return nil
}

func (w *World) release(c listener.Combo, a *Adapter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.owners[c] == a {
		delete(w.owners, c)
	}
}

func (w *World) releaseAll(a *Adapter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for c, owner := range w.owners {
		if owner == a {
			delete(w.owners, c)
		}
	}
}

// Owner returns the adapter holding c, or nil.
func (w *World) Owner(c listener.Combo) *Adapter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.owners[c]
}

// Press delivers a press of the combo to its owner. It reports whether anyone
// owned the combo.
func (w *World) Press(code, mods uint32) bool {
	return w.deliver(listener.RawEvent{Code: code, Mods: mods})
}

// Release delivers a release of the combo to its owner.
func (w *World) Release(code, mods uint32) bool {
	return w.deliver(listener.RawEvent{Code: code, Mods: mods, Release: true})
}

func (w *World) deliver(ev listener.RawEvent) bool {
	owner := w.Owner(listener.Combo{Code: ev.Code, Mods: ev.Mods})
	if owner == nil {
		return false
	}
	owner.Inject(ev)
	return true
}

// Adapter is a listener.Adapter backed by channels.
type Adapter struct {
	world  *World
	events chan listener.RawEvent
	wake   chan struct{}

	mu         sync.Mutex
	open       bool
	closed     chan struct{}
	gone       chan struct{}
	opens      int
	opening    int
	overlapped bool
	grabs      []listener.Combo
	ungrabs    []listener.Combo
	failGrab   map[listener.Combo]error
	failUngrab error
	openErr    error
	openDelay  time.Duration
	ignoreWake bool
}

var _ listener.Adapter = (*Adapter)(nil)

// NewAdapter returns an adapter living in w. A nil world gets a private
// one.
func NewAdapter(w *World) *Adapter {
	if w == nil {
		w = NewWorld()
	}
	return &Adapter{
		world:    w,
		events:   make(chan listener.RawEvent, 64),
		wake:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
		gone:     make(chan struct{}),
		failGrab: make(map[listener.Combo]error),
	}
}

// FailOpen makes the next Open calls fail with err.
func (a *Adapter) FailOpen(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openErr = err
}

// DelayOpen makes Open block for d.
func (a *Adapter) DelayOpen(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openDelay = d
}

// FailGrab makes grabs of c fail with err. A nil err clears it.
func (a *Adapter) FailGrab(c listener.Combo, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err == nil {
		delete(a.failGrab, c)
		return
	}
	a.failGrab[c] = err
}

// FailUngrab makes every ungrab report err while still releasing.
func (a *Adapter) FailUngrab(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failUngrab = err
}

// IgnoreWake simulates a worker that cannot be interrupted.
func (a *Adapter) IgnoreWake(ignore bool) {
	a.mu.Lock()
	a.ignoreWake = ignore
	a.mu.Unlock()
	if ignore {
		select {
		case <-a.wake:
		default:
		}
		return
	}
	a.Wake()
}

// Disconnect simulates losing the platform connection: Next reports
// listener.ErrClosed from now on.
func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.gone:
	default:
		close(a.gone)
	}
}

// Inject queues an event regardless of ownership.
func (a *Adapter) Inject(ev listener.RawEvent) {
	a.events <- ev
}

// IsOpen reports whether Open succeeded and Close was not called yet.
func (a *Adapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open
}

// Opens returns how many times Open succeeded.
func (a *Adapter) Opens() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opens
}

// Grabs returns every combo grabbed so far, in order.
func (a *Adapter) Grabs() []listener.Combo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]listener.Combo(nil), a.grabs...)
}

// Ungrabs returns every combo released so far, in order.
func (a *Adapter) Ungrabs() []listener.Combo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]listener.Combo(nil), a.ungrabs...)
}

// Overlapped reports whether Open was ever entered while another Open was
// in progress or the adapter was already open.
func (a *Adapter) Overlapped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlapped
}

func (a *Adapter) Open() error {
	a.mu.Lock()
	if a.opening > 0 || a.open {
		a.overlapped = true
	}
	a.opening++
	err, delay := a.openErr, a.openDelay
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.opening--
		a.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.open {
		return errors.New("listenertest: already open")
	}
	a.open = true
	a.opens++
	a.closed = make(chan struct{})
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return nil
	}
	a.open = false
	close(a.closed)
	a.world.releaseAll(a)
	return nil
}

func (a *Adapter) Grab(c listener.Combo) (listener.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failGrab[c]; err != nil {
		return nil, err
	}
	if err := a.world.claim(c, a); err != nil {
		return nil, err
	}
	a.grabs = append(a.grabs, c)
	return c, nil
}

func (a *Adapter) Ungrab(h listener.Handle) error {
	c, ok := h.(listener.Combo)
	if !ok {
		return errors.New("listenertest: foreign handle")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.world.release(c, a)
	a.ungrabs = append(a.ungrabs, c)
	return a.failUngrab
}

func (a *Adapter) Next() (listener.RawEvent, error) {
	a.mu.Lock()
	closed, gone := a.closed, a.gone
	a.mu.Unlock()

	select {
	case ev := <-a.events:
		return ev, nil
	case <-a.wake:
		return listener.RawEvent{}, listener.ErrWoken
	case <-closed:
		return listener.RawEvent{}, listener.ErrClosed
	case <-gone:
		return listener.RawEvent{}, listener.ErrClosed
	}
}

func (a *Adapter) Wake() error {
	a.mu.Lock()
	ignore := a.ignoreWake
	a.mu.Unlock()
	if ignore {
		return nil
	}
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}
