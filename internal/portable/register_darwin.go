//go:build darwin

package portable

import (
	"sync/atomic"

	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"
)

// mainLoop is set while RunMain owns the main thread. Otherwise another
// Cocoa loop (the tray) runs there and registration goes direct.
var mainLoop atomic.Bool

func register(hk *hotkey.Hotkey) error {
	if !mainLoop.Load() {
		return hk.Register()
	}
	var err error
	mainthread.Call(func() {
		err = hk.Register()
	})
	return err
}

// RunMain runs fn while the main thread serves hotkey registration. Use it
// when nothing else runs an event loop on the main thread.
func RunMain(fn func()) {
	mainthread.Init(func() {
		mainLoop.Store(true)
		defer mainLoop.Store(false)
		fn()
	})
}
