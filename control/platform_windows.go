//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific metrics/debug introspection points.

package control

import (
	"runtime"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-mem/core/concurrency"
)

// RegisterPlatformProbes sets Windows-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return windows.Getpagesize()
	})
	dp.RegisterProbe("platform.debugger_attached", func() any {
		return concurrency.DebuggerAttached()
	})
	dp.RegisterProbe("platform.default_backoff", func() any {
		return concurrency.DefaultBackoff().String()
	})
}
