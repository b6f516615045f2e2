// File: pool/alloc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral raw memory facility backing growable buffers. The
// mapped (off-heap) allocator lives in per-platform files.

package pool

import (
	"math"
	"reflect"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/hioload-mem/api"
)

// HeapAllocator allocates blocks on the Go heap. An optional byte limit
// turns exhaustion into ErrCodeOutOfMemory instead of a runtime panic.
type HeapAllocator[T any] struct {
	limit int64
	inUse atomic.Int64
}

// NewHeapAllocator returns a heap allocator. limitBytes <= 0 means unlimited.
func NewHeapAllocator[T any](limitBytes int64) *HeapAllocator[T] {
	return &HeapAllocator[T]{limit: limitBytes}
}

// Allocate returns a zeroed block of count records.
func (h *HeapAllocator[T]) Allocate(count int) ([]T, error) {
	if count < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "alloc: negative count %d", count)
	}
	if err := h.charge(count); err != nil {
		return nil, err
	}
	return make([]T, count), nil
}

// Resize copies the common prefix of block into a new block of newLen.
func (h *HeapAllocator[T]) Resize(block []T, newLen int) ([]T, error) {
	if newLen < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "alloc: negative length %d", newLen)
	}
	if err := h.charge(newLen); err != nil {
		return nil, err
	}
	next := make([]T, newLen)
	copy(next, block)
	h.release(cap(block))
	return next, nil
}

// Free drops the accounting for block; the GC reclaims the memory.
func (h *HeapAllocator[T]) Free(block []T) error {
	h.release(cap(block))
	return nil
}

// InUse reports bytes currently charged to the allocator.
func (h *HeapAllocator[T]) InUse() int64 { return h.inUse.Load() }

func (h *HeapAllocator[T]) charge(count int) error {
	n, err := blockBytes[T](count)
	if err != nil {
		return err
	}
	if used := h.inUse.Add(n); h.limit > 0 && used > h.limit {
		h.inUse.Add(-n)
		return api.NewError(api.ErrCodeOutOfMemory, "alloc: heap budget exhausted").
			WithContext("limit", h.limit).
			WithContext("requested", n)
	}
	return nil
}

func (h *HeapAllocator[T]) release(count int) {
	if n, err := blockBytes[T](count); err == nil {
		h.inUse.Add(-n)
	}
}

// blockBytes returns count*sizeof(T), failing with OutOfMemory on overflow.
func blockBytes[T any](count int) (int64, error) {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	if size != 0 && int64(count) > math.MaxInt64/size {
		return 0, api.Errorf(api.ErrCodeOutOfMemory, "alloc: %d records of %d bytes overflow", count, size)
	}
	return int64(count) * size, nil
}

// checkPlainType rejects record types the GC must scan. Memory outside
// the Go heap is invisible to the collector.
func checkPlainType[T any]() error {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if hasPointers(typ) {
		return api.Errorf(api.ErrCodeInvalidArgument, "alloc: %s holds pointers and cannot live off-heap", typ)
	}
	if typ.Size() == 0 {
		return api.Errorf(api.ErrCodeInvalidArgument, "alloc: %s is zero-sized", typ)
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

var (
	_ api.Allocator[int] = (*HeapAllocator[int])(nil)
	_ api.Allocator[int] = (*MappedAllocator[int])(nil)
)
