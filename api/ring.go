// Package api
// Author: momentics@gmail.com
//
// Fixed-capacity FIFO contract with overwrite-oldest semantics.

package api

// Ring is a bounded FIFO that never blocks and never grows.
type Ring[T any] interface {
	// Put appends item, dropping the oldest element when full.
	Put(item T)
	// Get removes the oldest item; fails on an empty ring.
	Get() (T, error)
	// Peek returns the oldest item without removing it.
	Peek() (T, error)
	// Len returns current number of items.
	Len() int
	// Cap returns buffer capacity.
	Cap() int
}
