//go:build !darwin

package main

// runMain runs fn. Only macOS needs the main thread for registration.
func runMain(fn func()) {
	fn()
}
