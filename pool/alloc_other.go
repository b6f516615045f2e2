//go:build !linux
// +build !linux

// File: pool/alloc_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms without the mmap allocator: the Go heap.

package pool

// MappedAllocator is heap-backed on this platform.
type MappedAllocator[T any] struct {
	HeapAllocator[T]
}

// NewMappedAllocator keeps the Linux contract: pointer-bearing or
// zero-sized T is rejected.
func NewMappedAllocator[T any]() (*MappedAllocator[T], error) {
	if err := checkPlainType[T](); err != nil {
		return nil, err
	}
	return &MappedAllocator[T]{}, nil
}
