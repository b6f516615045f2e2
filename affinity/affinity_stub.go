//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import "github.com/momentics/hioload-mem/api"

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return api.Errorf(api.ErrCodeInvalidOperation, "affinity: not supported on this platform")
}

func allowedPlatform() ([]int, error) {
	return nil, api.Errorf(api.ErrCodeInvalidOperation, "affinity: not supported on this platform")
}
