//go:build windows

// Package osutils holds small OS queries used when picking a backend.
package osutils

import (
	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process token is a member of the local
// Administrators group.
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// Elevated reports whether the process token is elevated by UAC. Low-level
// hooks in a non-elevated process do not see input aimed at elevated
// windows.
func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
