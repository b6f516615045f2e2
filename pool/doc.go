// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory primitives for hioload-mem.
// Arena: growable record block with concurrent lock-free reservation.
// ArrayPool: bounded cache of equal-length arrays under a spin lock.
// CircularBuffer: fixed-capacity overwriting FIFO.
// Allocators back the arena either on the Go heap or in anonymous mappings.
// See arena.go, arraypool.go, ring.go and alloc*.go for implementation details.
package pool
