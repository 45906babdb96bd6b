package listener

import (
	"errors"
	"runtime"
	"runtime/debug"

	"go.uber.org/zap"
)

// grabRecord tracks which edges of a combo hold the OS grab.
type grabRecord struct {
	handle Handle
	edges  [2]bool
}

func (r *grabRecord) empty() bool {
	return !r.edges[Press] && !r.edges[Release]
}

// worker owns the adapter and every grab record. Its methods run on the
// locked OS thread only.
type worker struct {
	adapter Adapter
	bridge  *bridge
	table   *BindTable
	log     *zap.Logger
	grabs   map[Combo]*grabRecord
}

func (w *worker) run(open *command) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.bridge.exit()

	if err := w.adapter.Open(); err != nil {
		open.complete(err)
		return
	}
	if !open.complete(nil) {
		w.log.Warn("start abandoned by caller, closing event source")
		w.closeAdapter()
		return
	}
	w.log.Debug("worker running")

	defer w.teardown()
	for {
		if stop := w.drain(); stop {
			return
		}
		ev, err := w.adapter.Next()
		switch {
		case err == nil:
			w.dispatch(ev)
		case errors.Is(err, ErrWoken):
		case errors.Is(err, ErrClosed):
			w.log.Warn("event source closed, worker exiting")
			return
		default:
			w.log.Warn("event source error", zap.Error(err))
		}
	}
}

// drain executes the pending command. It reports whether the worker
// should exit.
func (w *worker) drain() bool {
	for _, key := range w.bridge.takeOrphans() {
		if err := w.ungrab(key); err != nil {
			w.log.Warn("releasing orphaned grab failed", zap.Stringer("key", key), zap.Error(err))
			continue
		}
		w.log.Debug("released orphaned grab", zap.Stringer("key", key))
	}
	cmd, ok := w.bridge.take()
	if !ok {
		// A closed bridge with nothing pending means the stop command
		// timed out while a callback was running.
		return w.bridge.isClosed()
	}
	switch cmd.op {
	case opGrab:
		err := w.grab(cmd.key)
		if !cmd.complete(err) && err == nil {
			w.log.Warn("grab abandoned by caller, releasing", zap.Stringer("key", cmd.key))
			w.ungrab(cmd.key)
		}
	case opUngrab:
		cmd.complete(w.ungrab(cmd.key))
	case opStop:
		cmd.complete(nil)
		return true
	default:
		cmd.complete(errors.New("unknown command " + cmd.op.String()))
	}
	return false
}

func (w *worker) grab(key BindKey) error {
	if rec, ok := w.grabs[key.Combo]; ok {
		if rec.edges[key.Edge] {
			return ErrAlreadyBound
		}
		rec.edges[key.Edge] = true
		w.log.Debug("reusing grab for opposite edge", zap.Stringer("key", key))
		return nil
	}
	h, err := w.adapter.Grab(key.Combo)
	if err != nil {
		return err
	}
	rec := &grabRecord{handle: h}
	rec.edges[key.Edge] = true
	w.grabs[key.Combo] = rec
	w.log.Debug("grabbed", zap.Stringer("combo", key.Combo))
	return nil
}

func (w *worker) ungrab(key BindKey) error {
	rec, ok := w.grabs[key.Combo]
	if !ok || !rec.edges[key.Edge] {
		return nil
	}
	rec.edges[key.Edge] = false
	if !rec.empty() {
		return nil
	}
	delete(w.grabs, key.Combo)
	if err := w.adapter.Ungrab(rec.handle); err != nil {
		return err
	}
	w.log.Debug("ungrabbed", zap.Stringer("combo", key.Combo))
	return nil
}

func (w *worker) dispatch(ev RawEvent) {
	key := ev.Key()
	fn, ok := w.table.Lookup(key)
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("callback panicked",
				zap.Stringer("key", key),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn()
}

// teardown releases grabs that outlived their bindings and closes the
// source.
func (w *worker) teardown() {
	for combo, rec := range w.grabs {
		if err := w.adapter.Ungrab(rec.handle); err != nil {
			w.log.Warn("ungrab on exit failed", zap.Stringer("combo", combo), zap.Error(err))
		}
		delete(w.grabs, combo)
	}
	w.closeAdapter()
	w.log.Debug("worker exited")
}

func (w *worker) closeAdapter() {
	if err := w.adapter.Close(); err != nil {
		w.log.Warn("closing event source failed", zap.Error(err))
	}
}
