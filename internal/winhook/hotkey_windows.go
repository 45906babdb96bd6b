//go:build windows

package winhook

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

// maxHotkeyID is the top of the id range applications may use.
const maxHotkeyID = 0xBFFF

// HotkeyAdapter grabs combos with RegisterHotKey. Codes are virtual-key
// codes and mods are MOD_* bits. The system reports presses only, so
// release bindings never fire.
type HotkeyAdapter struct {
	log *zap.Logger

	mu  sync.Mutex
	tid uint32

	nextID int32
	ids    map[int32]listener.Combo
}

var _ listener.Adapter = (*HotkeyAdapter)(nil)

// NewHotkeyAdapter returns an adapter using RegisterHotKey.
func NewHotkeyAdapter(log *zap.Logger) *HotkeyAdapter {
	if log == nil {
		log = zap.L()
	}
	return &HotkeyAdapter{
		log: log.With(zap.String("component", "winhook"), zap.String("mode", "hotkey")),
		ids: make(map[int32]listener.Combo),
	}
}

func (a *HotkeyAdapter) Open() error {
	ensureQueue()
	a.mu.Lock()
	a.tid = windows.GetCurrentThreadId()
	a.mu.Unlock()
	a.log.Info("hotkey message queue ready")
	return nil
}

func (a *HotkeyAdapter) Close() error {
	for id := range a.ids {
		procUnregisterHotKey.Call(0, uintptr(id))
		delete(a.ids, id)
	}
	a.mu.Lock()
	a.tid = 0
	a.mu.Unlock()
	return nil
}

func (a *HotkeyAdapter) Grab(c listener.Combo) (listener.Handle, error) {
	id, err := a.allocID()
	if err != nil {
		return nil, err
	}
	r, _, e := procRegisterHotKey.Call(0, uintptr(id), uintptr(c.Mods|ModNoRepeat), uintptr(c.Code))
	if r == 0 {
		if errnoCode(e) == ERROR_HOTKEY_ALREADY_REGISTERED {
			return nil, fmt.Errorf("RegisterHotKey %s: %w", c, listener.ErrAlreadyGrabbed)
		}
		return nil, &listener.PlatformError{Op: "RegisterHotKey", Code: errnoCode(e), Err: e}
	}
	a.ids[id] = c
	return id, nil
}

func (a *HotkeyAdapter) Ungrab(h listener.Handle) error {
	id, ok := h.(int32)
	if !ok {
		return fmt.Errorf("UnregisterHotKey: unexpected handle %T", h)
	}
	delete(a.ids, id)
	r, _, e := procUnregisterHotKey.Call(0, uintptr(id))
	if r == 0 {
		return &listener.PlatformError{Op: "UnregisterHotKey", Code: errnoCode(e), Err: e}
	}
	return nil
}

func (a *HotkeyAdapter) allocID() (int32, error) {
	for i := 0; i < maxHotkeyID; i++ {
		a.nextID = a.nextID%maxHotkeyID + 1
		if _, used := a.ids[a.nextID]; !used {
			return a.nextID, nil
		}
	}
	return 0, &listener.PlatformError{Op: "RegisterHotKey", Code: -1, Err: fmt.Errorf("no free hotkey id")}
}

func (a *HotkeyAdapter) Next() (listener.RawEvent, error) {
	var msg MSG
	for {
		ok, err := getMessage(&msg)
		if err != nil {
			return listener.RawEvent{}, &listener.PlatformError{Op: "GetMessage", Code: errnoCode(err), Err: err}
		}
		if !ok {
			return listener.RawEvent{}, listener.ErrClosed
		}
		switch msg.Message {
		case wmWake:
			return listener.RawEvent{}, listener.ErrWoken
		case WM_HOTKEY:
			c, ok := a.ids[int32(msg.WParam)]
			if !ok {
				continue
			}
			return listener.RawEvent{Code: c.Code, Mods: c.Mods}, nil
		}
	}
}

func (a *HotkeyAdapter) Wake() error {
	a.mu.Lock()
	tid := a.tid
	a.mu.Unlock()
	if tid == 0 {
		return nil
	}
	return postThreadMessage(tid, wmWake)
}
