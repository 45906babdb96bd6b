package listener

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every wait on the worker.
const DefaultTimeout = 5 * time.Second

var errNilCallback = errors.New("nil callback")

// Option configures a Listener.
type Option func(*Listener)

// WithTimeout sets how long callers wait for the worker.
func WithTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger. The default is zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(l *Listener) {
		if log != nil {
			l.log = log
		}
	}
}

// run is one Start..Stop cycle.
type run struct {
	bridge *bridge
}

// Listener binds callbacks to grabbed combos. Bind, Unbind and Stop are
// synchronous; the OS work happens on a worker locked to its own thread,
// and callbacks run there too. A callback must not call Bind, Unbind or
// Stop on its own listener: such calls fail with ErrTimeout.
type Listener struct {
	id      string
	adapter Adapter
	timeout time.Duration
	log     *zap.Logger
	table   *BindTable

	lifeMu sync.RWMutex
	state  atomic.Int32
	cur    *run

	// lingering is the exit signal of a worker that outlived its Stop.
	lingering <-chan struct{}
}

// New returns an idle listener driving a.
func New(a Adapter, opts ...Option) *Listener {
	l := &Listener{
		id:      uuid.NewString(),
		adapter: a,
		timeout: DefaultTimeout,
		log:     zap.L(),
		table:   NewBindTable(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("component", "listener"), zap.String("listener", l.id))
	return l
}

// ID identifies the listener in logs.
func (l *Listener) ID() string {
	return l.id
}

// State returns the lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Bindings returns the bound keys.
func (l *Listener) Bindings() []BindKey {
	return l.table.Keys()
}

// Start launches the worker and waits until the event source is open.
func (l *Listener) Start() error {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()

	if l.State() != Idle {
		return ErrAlreadyStarted
	}
	if l.lingering != nil {
		if !l.waitExit(l.lingering) {
			return ErrTimeout
		}
		l.lingering = nil
	}

	b := newBridge(l.adapter.Wake, l.timeout)
	w := &worker{
		adapter: l.adapter,
		bridge:  b,
		table:   l.table,
		log:     l.log,
		grabs:   make(map[Combo]*grabRecord),
	}
	open := newCommand(opOpen, BindKey{})
	go w.run(open)

	if err := b.await(open); err != nil {
		b.close(ErrNotStarted)
		// A worker still inside Open closes the adapter once it notices.
		l.lingering = b.exited
		l.log.Error("listener failed to start", zap.Error(err))
		return err
	}

	l.cur = &run{bridge: b}
	l.state.Store(int32(Living))
	l.log.Info("listener started")
	return nil
}

// Stop releases every binding and joins the worker. The listener is idle
// afterwards even if the worker did not answer in time.
func (l *Listener) Stop() error {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()

	if l.State() != Living {
		return ErrNotStarted
	}
	l.state.Store(int32(Stopping))
	r := l.cur
	defer func() {
		l.cur = nil
		l.state.Store(int32(Idle))
	}()

	l.unbindAll(r)

	err := r.bridge.submit(newCommand(opStop, BindKey{}))
	r.bridge.close(ErrNotStarted)
	if err != nil && !errors.Is(err, ErrWorkerExited) {
		l.log.Warn("stop command failed", zap.Error(err))
	}

	if !l.waitExit(r.bridge.exited) {
		l.lingering = r.bridge.exited
		l.log.Error("worker did not exit in time")
		return ErrTimeout
	}
	l.log.Info("listener stopped")
	return nil
}

func (l *Listener) waitExit(exited <-chan struct{}) bool {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case <-exited:
		return true
	case <-timer.C:
		return false
	}
}

// Bind grabs key's combo and registers fn for key.
func (l *Listener) Bind(key BindKey, fn func()) error {
	if fn == nil {
		return errNilCallback
	}
	l.lifeMu.RLock()
	defer l.lifeMu.RUnlock()

	if l.State() != Living {
		return ErrNotStarted
	}
	if l.table.Has(key) {
		return ErrAlreadyBound
	}
	r := l.cur
	if err := r.bridge.submit(newCommand(opGrab, key)); err != nil {
		return err
	}
	if err := l.table.Insert(key, fn); err != nil {
		l.release(r, key)
		return err
	}
	l.log.Debug("bound", zap.Stringer("key", key))
	return nil
}

// Unbind removes the callback for key and releases its grab if no other
// edge of the combo is bound. Release failures are logged only.
func (l *Listener) Unbind(key BindKey) error {
	l.lifeMu.RLock()
	defer l.lifeMu.RUnlock()

	if l.State() != Living {
		return ErrNotStarted
	}
	if _, err := l.table.Remove(key); err != nil {
		return err
	}
	l.release(l.cur, key)
	l.log.Debug("unbound", zap.Stringer("key", key))
	return nil
}

// UnbindAll removes every binding.
func (l *Listener) UnbindAll() error {
	l.lifeMu.RLock()
	defer l.lifeMu.RUnlock()

	if l.State() != Living {
		return ErrNotStarted
	}
	l.unbindAll(l.cur)
	return nil
}

// unbindAll stops asking a worker that timed out once; its teardown
// releases whatever grabs are left.
func (l *Listener) unbindAll(r *run) {
	stuck := false
	for _, key := range l.table.DrainAll() {
		if stuck {
			continue
		}
		stuck = errors.Is(l.release(r, key), ErrTimeout)
	}
}

func (l *Listener) release(r *run, key BindKey) error {
	err := r.bridge.submit(newCommand(opUngrab, key))
	if err != nil {
		l.log.Warn("ungrab failed", zap.Stringer("key", key), zap.Error(err))
	}
	return err
}
