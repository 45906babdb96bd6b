//go:build windows

package winhook

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"go.uber.org/zap"

	"keywatch/internal/listener"
)

var (
	hooks = NewRegistry[*HookAdapter]()

	callbackOnce     sync.Once
	keyboardCallback uintptr
	mouseCallback    uintptr
)

// callbacks returns the hook trampolines. Callbacks are a scarce process
// resource and are created once.
func callbacks() (keyboard, mouse uintptr) {
	callbackOnce.Do(func() {
		keyboardCallback = windows.NewCallback(keyboardProc)
		mouseCallback = windows.NewCallback(mouseProc)
	})
	return keyboardCallback, mouseCallback
}

func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if a, ok := hooks.Get(windows.GetCurrentThreadId()); ok && nCode == 0 {
		kb := (*KBDLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		pressed := wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN
		swallow := a.state.key(kb.VkCode, pressed)
		a.notify()
		if swallow {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func mouseProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if a, ok := hooks.Get(windows.GetCurrentThreadId()); ok && nCode == 0 {
		ms := (*MSLLHOOKSTRUCT)(unsafe.Pointer(lParam))
		var swallow bool
		switch wParam {
		case WM_LBUTTONDOWN, WM_LBUTTONUP:
			swallow = a.state.button(ButtonLeft, wParam == WM_LBUTTONDOWN)
		case WM_MBUTTONDOWN, WM_MBUTTONUP:
			swallow = a.state.button(ButtonMiddle, wParam == WM_MBUTTONDOWN)
		case WM_RBUTTONDOWN, WM_RBUTTONUP:
			swallow = a.state.button(ButtonRight, wParam == WM_RBUTTONDOWN)
		case WM_MOUSEWHEEL:
			swallow = a.state.scroll(int16(ms.MouseData>>16), false)
		case WM_MOUSEHWHEEL:
			swallow = a.state.scroll(int16(ms.MouseData>>16), true)
		case WM_MOUSEMOVE:
			swallow = a.state.moved(ms.Pt.X, ms.Pt.Y)
		}
		a.notify()
		if swallow {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

// HookAdapter captures input with a low-level keyboard or mouse hook.
// Key codes are virtual-key codes with MOD_* modifier bits; mouse codes
// are the Button* constants with no modifiers.
type HookAdapter struct {
	log    *zap.Logger
	mode   Mode
	onMove func(Motion)
	claims *Claims

	mu  sync.Mutex
	tid uint32

	hook  uintptr
	state hookState
}

var _ listener.Adapter = (*HookAdapter)(nil)

// NewHookAdapter returns a hook adapter. onMove is only used in
// ModeMouse; setting it pins the cursor while the listener runs.
func NewHookAdapter(mode Mode, onMove func(Motion), log *zap.Logger) *HookAdapter {
	if log == nil {
		log = zap.L()
	}
	claims := keyboardClaims
	if mode == ModeMouse {
		claims = mouseClaims
	}
	return &HookAdapter{
		log:    log.With(zap.String("component", "winhook"), zap.Stringer("mode", mode)),
		mode:   mode,
		onMove: onMove,
		claims: claims,
		state:  newHookState(mode, onMove != nil),
	}
}

func (a *HookAdapter) Open() error {
	ensureQueue()
	tid := windows.GetCurrentThreadId()
	if err := hooks.Put(tid, a); err != nil {
		return err
	}
	if a.mode != ModeKeys {
		if err := a.claims.ClaimAll(a); err != nil {
			hooks.Delete(tid)
			return fmt.Errorf("hook %s: %w", a.mode, err)
		}
	}
	if a.state.capture {
		pt, err := cursorPos()
		if err != nil {
			a.release(tid)
			return &listener.PlatformError{Op: "GetCursorPos", Code: errnoCode(err), Err: err}
		}
		a.state.originX, a.state.originY = pt.X, pt.Y
	}

	keyboard, mouse := callbacks()
	kind, proc := uintptr(WH_KEYBOARD_LL), keyboard
	if a.mode == ModeMouse {
		kind, proc = WH_MOUSE_LL, mouse
	}
	hMod, _, _ := procGetModuleHandle.Call(0)
	h, _, e := procSetWindowsHookEx.Call(kind, proc, hMod, 0)
	if h == 0 {
		a.release(tid)
		return &listener.PlatformError{Op: "SetWindowsHookEx", Code: errnoCode(e), Err: e}
	}
	a.hook = h

	a.mu.Lock()
	a.tid = tid
	a.mu.Unlock()
	a.log.Info("hook installed")
	return nil
}

func (a *HookAdapter) Close() error {
	var err error
	if a.hook != 0 {
		if r, _, e := procUnhookWindowsHookEx.Call(a.hook); r == 0 {
			err = &listener.PlatformError{Op: "UnhookWindowsHookEx", Code: errnoCode(e), Err: e}
		}
		a.hook = 0
	}
	a.mu.Lock()
	tid := a.tid
	a.tid = 0
	a.mu.Unlock()
	a.release(tid)
	a.log.Info("hook removed")
	return err
}

func (a *HookAdapter) release(tid uint32) {
	hooks.Delete(tid)
	a.claims.ReleaseAll(a)
	a.state.reset()
}

func (a *HookAdapter) Grab(c listener.Combo) (listener.Handle, error) {
	if a.mode == ModeKeys {
		if err := a.claims.Claim(a, c); err != nil {
			return nil, fmt.Errorf("hook %s: %w", c, err)
		}
	}
	a.state.grabbed[c] = true
	return c, nil
}

func (a *HookAdapter) Ungrab(h listener.Handle) error {
	c, ok := h.(listener.Combo)
	if !ok {
		return fmt.Errorf("unhook: unexpected handle %T", h)
	}
	delete(a.state.grabbed, c)
	if a.mode == ModeKeys {
		a.claims.Release(a, c)
	}
	return nil
}

func (a *HookAdapter) Next() (listener.RawEvent, error) {
	var msg MSG
	for {
		if ev, ok := a.state.pop(); ok {
			if ev.motion != nil {
				if a.onMove != nil {
					a.onMove(*ev.motion)
				}
				continue
			}
			return ev.raw, nil
		}
		ok, err := getMessage(&msg)
		if err != nil {
			return listener.RawEvent{}, &listener.PlatformError{Op: "GetMessage", Code: errnoCode(err), Err: err}
		}
		if !ok {
			return listener.RawEvent{}, listener.ErrClosed
		}
		if msg.Message == wmWake {
			return listener.RawEvent{}, listener.ErrWoken
		}
	}
}

// notify makes the pending GetMessage return so Next sees queued events.
func (a *HookAdapter) notify() {
	if len(a.state.queue) == 0 {
		return
	}
	postThreadMessage(windows.GetCurrentThreadId(), wmInput)
}

func (a *HookAdapter) Wake() error {
	a.mu.Lock()
	tid := a.tid
	a.mu.Unlock()
	if tid == 0 {
		return nil
	}
	return postThreadMessage(tid, wmWake)
}
