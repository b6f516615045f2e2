// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-mem/api"
)

// SetAffinity pins current OS thread to a given logical CPU/core on supported platforms.
// The caller must hold runtime.LockOSThread for the pin to stay with its goroutine.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return api.Errorf(api.ErrCodeOutOfRange, "affinity: negative cpu %d", cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// AllowedCPUs lists the logical CPUs the process may run on, ascending.
func AllowedCPUs() ([]int, error) {
	return allowedPlatform()
}

// Pin locks the calling goroutine to its OS thread for the rest of the
// goroutine's life and pins that thread to cpuID. A goroutine that exits
// while locked takes its thread with it, so the narrowed mask never reaches
// other goroutines. Call Pin only from goroutines that end with their work.
func Pin(cpuID int) error {
	runtime.LockOSThread()
	if err := SetAffinity(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}
