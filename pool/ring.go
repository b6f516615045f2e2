// File: pool/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity FIFO that overwrites its oldest entry when full.
// Every method runs entirely under the instance SpinLock.

package pool

import (
	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
)

// CircularBuffer is a bounded ring: head is the next write slot, tail the
// next read slot, size the logical element count.
type CircularBuffer[T any] struct {
	lock concurrency.SpinLock
	buf  []T
	head int
	tail int
	size int
}

// NewCircularBuffer creates a ring of the given capacity seeded with items,
// oldest first.
func NewCircularBuffer[T any](capacity int, items ...T) (*CircularBuffer[T], error) {
	return NewCircularBufferWith(capacity, items)
}

// NewCircularBufferWith is NewCircularBuffer with options.
func NewCircularBufferWith[T any](capacity int, items []T, opts ...Option) (*CircularBuffer[T], error) {
	if capacity < 1 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "ring: capacity must be at least 1, got %d", capacity)
	}
	if len(items) > capacity {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "ring: %d seed items exceed capacity %d", len(items), capacity)
	}
	o := buildOptions(opts)
	r := &CircularBuffer[T]{
		buf:  make([]T, capacity),
		size: len(items),
	}
	copy(r.buf, items)
	r.head = len(items) % capacity
	r.lock.Init(o.backoff)
	return r, nil
}

// Put appends item. When the ring is full the oldest element is dropped.
func (r *CircularBuffer[T]) Put(item T) {
	r.lock.Lock()
	if r.size == len(r.buf) {
		r.tail = r.inc(r.tail)
	} else {
		r.size++
	}
	r.buf[r.head] = item
	r.head = r.inc(r.head)
	r.lock.Unlock()
}

// Get removes and returns the oldest element.
func (r *CircularBuffer[T]) Get() (T, error) {
	var zero T
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.size == 0 {
		return zero, errEmptyRing()
	}
	item := r.buf[r.tail]
	r.buf[r.tail] = zero
	r.tail = r.inc(r.tail)
	r.size--
	return item, nil
}

// Peek returns the oldest element without removing it.
func (r *CircularBuffer[T]) Peek() (T, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.size == 0 {
		var zero T
		return zero, errEmptyRing()
	}
	return r.buf[r.tail], nil
}

// At returns the i-th element counted from the oldest.
func (r *CircularBuffer[T]) At(i int) (T, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkIndex(i); err != nil {
		var zero T
		return zero, err
	}
	return r.buf[r.slot(i)], nil
}

// Set overwrites the i-th element counted from the oldest.
func (r *CircularBuffer[T]) Set(i int, v T) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkIndex(i); err != nil {
		return err
	}
	r.buf[r.slot(i)] = v
	return nil
}

// Consume returns the i-th element and resets its slot to the zero value.
// The element count is unchanged: the slot stays logically occupied and
// later reads of it yield the zero value.
func (r *CircularBuffer[T]) Consume(i int) (T, error) {
	var zero T
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkIndex(i); err != nil {
		return zero, err
	}
	s := r.slot(i)
	v := r.buf[s]
	r.buf[s] = zero
	return v, nil
}

// Clear empties the ring and zeroes its storage. Capacity is unchanged.
func (r *CircularBuffer[T]) Clear() {
	r.lock.Lock()
	r.head, r.tail, r.size = 0, 0, 0
	clear(r.buf)
	r.lock.Unlock()
}

// ToSlice copies the elements out, oldest first.
func (r *CircularBuffer[T]) ToSlice() []T {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.buf[r.slot(i)]
	}
	return out
}

// Len returns the number of elements.
func (r *CircularBuffer[T]) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *CircularBuffer[T]) Cap() int { return len(r.buf) }

// IsEmpty reports whether the ring holds no elements.
func (r *CircularBuffer[T]) IsEmpty() bool { return r.Len() == 0 }

// IsFull reports whether the next Put overwrites.
func (r *CircularBuffer[T]) IsFull() bool { return r.Len() == len(r.buf) }

func (r *CircularBuffer[T]) checkIndex(i int) error {
	if i < 0 || i >= r.size {
		return api.Errorf(api.ErrCodeOutOfRange, "ring: index %d out of range [0,%d)", i, r.size)
	}
	return nil
}

func (r *CircularBuffer[T]) slot(i int) int {
	return (r.tail + i) % len(r.buf)
}

func (r *CircularBuffer[T]) inc(i int) int {
	if i++; i == len(r.buf) {
		return 0
	}
	return i
}

func errEmptyRing() error {
	return api.NewError(api.ErrCodeInvalidOperation, "ring: empty buffer")
}

var _ api.Ring[int] = (*CircularBuffer[int])(nil)
