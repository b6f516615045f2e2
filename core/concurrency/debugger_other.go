//go:build !linux && !windows
// +build !linux,!windows

// File: core/concurrency/debugger_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

// DebuggerAttached always reports false where no detection is available.
func DebuggerAttached() bool { return false }
