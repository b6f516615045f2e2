//go:build !linux && !windows

// control/platform_other.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"os"
	"runtime"

	"github.com/momentics/hioload-mem/core/concurrency"
)

// RegisterPlatformProbes sets the portable debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return os.Getpagesize()
	})
	dp.RegisterProbe("platform.debugger_attached", func() any {
		return concurrency.DebuggerAttached()
	})
	dp.RegisterProbe("platform.default_backoff", func() any {
		return concurrency.DefaultBackoff().String()
	})
}
