//go:build windows
// +build windows

// File: core/concurrency/debugger_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "golang.org/x/sys/windows"

var (
	modkernel32           = windows.NewLazySystemDLL("kernel32.dll")
	procIsDebuggerPresent = modkernel32.NewProc("IsDebuggerPresent")
)

// DebuggerAttached reports whether a user-mode debugger is attached.
func DebuggerAttached() bool {
	if procIsDebuggerPresent.Find() != nil {
		return false
	}
	r, _, _ := procIsDebuggerPresent.Call()
	return r != 0
}
