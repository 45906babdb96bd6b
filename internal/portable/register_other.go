//go:build !darwin

package portable

import "golang.design/x/hotkey"

func register(hk *hotkey.Hotkey) error {
	return hk.Register()
}

// RunMain runs fn.
func RunMain(fn func()) {
	fn()
}
