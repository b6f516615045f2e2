//go:build linux
// +build linux

// File: pool/alloc_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux off-heap allocator: anonymous private mappings via mmap(2).
// Resize maps a fresh region and copies; mremap is avoided so a failed
// grow leaves the old block intact.

package pool

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-mem/api"
)

// MappedAllocator hands out blocks of pointer-free records from anonymous
// memory mappings. Blocks must be released with Free.
type MappedAllocator[T any] struct {
	mapped atomic.Int64
}

// NewMappedAllocator fails with ErrCodeInvalidArgument when T holds
// pointers or is zero-sized.
func NewMappedAllocator[T any]() (*MappedAllocator[T], error) {
	if err := checkPlainType[T](); err != nil {
		return nil, err
	}
	return &MappedAllocator[T]{}, nil
}

// Allocate maps a zeroed region of count records.
func (m *MappedAllocator[T]) Allocate(count int) ([]T, error) {
	if count < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "mmap: negative count %d", count)
	}
	if count == 0 {
		return nil, nil
	}
	n, err := blockBytes[T](count)
	if err != nil {
		return nil, err
	}
	b, err := unix.Mmap(-1, 0, int(n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeOutOfMemory, err, "mmap failed").WithContext("bytes", n)
	}
	m.mapped.Add(n)
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), count), nil
}

// Resize maps a region of newLen records, copies the common prefix and
// unmaps block. On failure block is left untouched.
func (m *MappedAllocator[T]) Resize(block []T, newLen int) ([]T, error) {
	next, err := m.Allocate(newLen)
	if err != nil {
		return nil, err
	}
	copy(next, block)
	if err := m.Free(block); err != nil {
		return nil, err
	}
	return next, nil
}

// Free unmaps block. block must be exactly as returned by Allocate or Resize.
func (m *MappedAllocator[T]) Free(block []T) error {
	if cap(block) == 0 {
		return nil
	}
	block = block[:cap(block)]
	var zero T
	n := int64(len(block)) * int64(unsafe.Sizeof(zero))
	b := unsafe.Slice((*byte)(unsafe.Pointer(&block[0])), n)
	if err := unix.Munmap(b); err != nil {
		return api.Wrap(api.ErrCodeInvalidOperation, err, "munmap failed")
	}
	m.mapped.Add(-n)
	return nil
}

// InUse reports bytes currently mapped.
func (m *MappedAllocator[T]) InUse() int64 { return m.mapped.Load() }
