//go:build !windows

// Package osutils holds small OS queries used when picking a backend.
package osutils

import "os"

// IsAdmin reports whether the process runs as root.
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// Elevated is IsAdmin outside Windows.
func Elevated() bool {
	return IsAdmin()
}
