//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific implementation for setting thread CPU affinity.

package affinity

import (
	"runtime"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-mem/api"
)

var procSetThreadAffinityMask = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadAffinityMask")

// setAffinityPlatform sets thread affinity to a given CPU for Windows.
// Only the first processor group (64 CPUs) is addressable.
func setAffinityPlatform(cpuID int) error {
	if cpuID >= 64 {
		return api.Errorf(api.ErrCodeOutOfRange, "affinity: cpu %d outside processor group 0", cpuID)
	}
	mask := uintptr(1) << uint(cpuID)
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if ret == 0 {
		return api.Wrap(api.ErrCodeInvalidOperation, err, "affinity: SetThreadAffinityMask failed").
			WithContext("cpu", cpuID)
	}
	return nil
}

func allowedPlatform() ([]int, error) {
	n := min(runtime.NumCPU(), 64)
	cpus := make([]int, n)
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}
