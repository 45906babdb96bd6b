//go:build windows

package winhook

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPeekMessage         = user32.NewProc("PeekMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
)

const (
	WH_KEYBOARD_LL = 13
	WH_MOUSE_LL    = 14

	WM_QUIT        = 0x0012
	WM_HOTKEY      = 0x0312
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	WM_MOUSEMOVE   = 0x0200
	WM_LBUTTONDOWN = 0x0201
	WM_LBUTTONUP   = 0x0202
	WM_RBUTTONDOWN = 0x0204
	WM_RBUTTONUP   = 0x0205
	WM_MBUTTONDOWN = 0x0207
	WM_MBUTTONUP   = 0x0208
	WM_MOUSEWHEEL  = 0x020A
	WM_MOUSEHWHEEL = 0x020E
	WM_APP         = 0x8000

	PM_NOREMOVE = 0x0000

	ERROR_HOTKEY_ALREADY_REGISTERED = 1409
)

// Private thread messages.
const (
	wmWake  = WM_APP + 1
	wmInput = WM_APP + 2
)

type POINT struct {
	X, Y int32
}

type MSG struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      POINT
}

type KBDLLHOOKSTRUCT struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type MSLLHOOKSTRUCT struct {
	Pt          POINT
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// ensureQueue forces the calling thread to own a message queue so that
// PostThreadMessage succeeds before the first GetMessage.
func ensureQueue() {
	var msg MSG
	procPeekMessage.Call(uintptr(unsafe.Pointer(&msg)), 0, WM_APP, WM_APP, PM_NOREMOVE)
}

// getMessage blocks for the next message of the calling thread. ok is
// false on WM_QUIT.
func getMessage(msg *MSG) (ok bool, err error) {
	r, _, e := procGetMessage.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	switch int32(r) {
	case -1:
		return false, e
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func postThreadMessage(tid uint32, msg uint32) error {
	r, _, e := procPostThreadMessage.Call(uintptr(tid), uintptr(msg), 0, 0)
	if r == 0 {
		return e
	}
	return nil
}

func cursorPos() (POINT, error) {
	var pt POINT
	r, _, e := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r == 0 {
		return pt, e
	}
	return pt, nil
}

func errnoCode(err error) int {
	if errno, ok := err.(syscall.Errno); ok {
		return int(errno)
	}
	return -1
}
