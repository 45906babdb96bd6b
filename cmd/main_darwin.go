package main

import (
	"runtime"

	"keywatch/internal/portable"
)

// Cocoa event loops (tray, hotkey registration) must run on the main thread.
func init() {
	runtime.LockOSThread()
}

// runMain serves hotkey registration on the main thread while fn runs.
func runMain(fn func()) {
	portable.RunMain(fn)
}
