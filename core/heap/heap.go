// File: core/heap/heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The backing array is a complete binary tree by index: parent (i-1)/2,
// children 2i+1 and 2i+2. It doubles when full and never shrinks. The heap
// is not synchronized; confine it to one goroutine or guard it externally.

package heap

import "github.com/momentics/hioload-mem/api"

// Compare returns a negative number when a orders before b, zero when they
// are equal and a positive number otherwise.
type Compare[T any] func(a, b T) int

// MinHeap keeps the smallest element, per its comparator, at the root.
// Equal elements come out in no particular order.
type MinHeap[T any] struct {
	items   []T
	count   int
	compare Compare[T]
}

// New preallocates capacity slots.
func New[T any](capacity int, compare func(a, b T) int) (*MinHeap[T], error) {
	if capacity < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "heap: negative capacity %d", capacity)
	}
	if compare == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "heap: nil comparator")
	}
	return &MinHeap[T]{
		items:   make([]T, capacity),
		compare: compare,
	}, nil
}

// Count returns the number of elements in the heap.
func (h *MinHeap[T]) Count() int { return h.count }

// Cap returns the length of the backing array.
func (h *MinHeap[T]) Cap() int { return len(h.items) }

// Add inserts item, doubling the backing array first if it is full.
func (h *MinHeap[T]) Add(item T) {
	if h.count == len(h.items) {
		h.grow()
	}
	h.items[h.count] = item
	h.swim(h.count)
	h.count++
}

func (h *MinHeap[T]) grow() {
	n := len(h.items) * 2
	if n == 0 {
		n = 1
	}
	items := make([]T, n)
	copy(items, h.items[:h.count])
	h.items = items
}

// Peek returns the root without removing it.
func (h *MinHeap[T]) Peek() (T, error) {
	if h.count == 0 {
		var zero T
		return zero, errEmpty()
	}
	return h.items[0], nil
}

// RemoveFirst removes and returns the root.
func (h *MinHeap[T]) RemoveFirst() (T, error) {
	var zero T
	if h.count == 0 {
		return zero, errEmpty()
	}
	first := h.items[0]
	h.count--
	h.items[0] = h.items[h.count]
	h.items[h.count] = zero
	if h.count > 0 {
		h.sink(0)
	}
	return first, nil
}

// Clear drops every element. The backing array keeps its length; slots are
// zeroed so the heap holds no references.
func (h *MinHeap[T]) Clear() {
	clear(h.items[:h.count])
	h.count = 0
}

func (h *MinHeap[T]) swim(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if h.compare(item, h.items[parent]) >= 0 {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *MinHeap[T]) sink(i int) {
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= h.count {
			break
		}
		if right := child + 1; right < h.count && h.compare(h.items[right], h.items[child]) < 0 {
			child = right
		}
		if h.compare(item, h.items[child]) <= 0 {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func errEmpty() error {
	return api.NewError(api.ErrCodeInvalidOperation, "heap: empty collection")
}
