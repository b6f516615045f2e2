// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract pooling and raw allocation APIs.

package api

// ArrayPool caches same-length arrays for transient reuse.
type ArrayPool[T any] interface {
	// Rent returns an array of the pool's configured length. Never nil.
	Rent() []T

	// Return hands an array back; clear zeroes it before caching.
	Return(arr []T, clear bool) error
}

// Allocator is the raw memory facility behind growable buffers.
// Blocks returned by Allocate or Resize are owned by the caller until
// passed to Free or Resize; Resize invalidates the block passed in.
type Allocator[T any] interface {
	// Allocate returns a block of count records.
	Allocate(count int) ([]T, error)

	// Resize returns a block of newLen records holding the prefix of block.
	Resize(block []T, newLen int) ([]T, error)

	// Free releases block. Freeing an empty block is a no-op.
	Free(block []T) error
}
