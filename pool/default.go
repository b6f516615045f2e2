// File: pool/default.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"strings"

	"github.com/momentics/hioload-mem/api"
)

// Allocator kinds accepted by NewAllocator.
const (
	AllocatorHeap   = "heap"
	AllocatorMapped = "mmap"
)

// DefaultAllocator returns an unlimited Go heap allocator, safe for any T.
func DefaultAllocator[T any]() api.Allocator[T] {
	return NewHeapAllocator[T](0)
}

// NewAllocator builds the allocator named by kind. limitBytes bounds the
// heap allocator and is ignored for mappings.
func NewAllocator[T any](kind string, limitBytes int64) (api.Allocator[T], error) {
	switch strings.ToLower(kind) {
	case "", AllocatorHeap:
		return NewHeapAllocator[T](limitBytes), nil
	case AllocatorMapped:
		m, err := NewMappedAllocator[T]()
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, api.Errorf(api.ErrCodeInvalidArgument, "unknown allocator %q", kind)
}
