//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mem/api"
)

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
// pid 0 addresses the calling thread.
func setAffinityPlatform(cpuID int) error {
	if cpuID >= maxCPUs {
		return api.Errorf(api.ErrCodeOutOfRange, "affinity: cpu %d beyond cpu set size %d", cpuID, maxCPUs)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return api.Wrap(api.ErrCodeInvalidOperation, err, "affinity: sched_setaffinity failed").
			WithContext("cpu", cpuID)
	}
	return nil
}

const maxCPUs = 1024

func allowedPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, api.Wrap(api.ErrCodeInvalidOperation, err, "affinity: sched_getaffinity failed")
	}
	cpus := make([]int, 0, set.Count())
	for i := 0; i < maxCPUs && len(cpus) < cap(cpus); i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
