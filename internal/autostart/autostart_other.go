//go:build !windows

package autostart

import "errors"

var errNoRegistry = errors.New("the Run key exists only on Windows")

func enableWindows(entry) error { return errNoRegistry }

func disableWindows() error { return errNoRegistry }

func isEnabledWindows() bool { return false }
