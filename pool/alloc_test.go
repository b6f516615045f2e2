package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mem/api"
)

func TestHeapAllocatorBudget(t *testing.T) {
	h := NewHeapAllocator[uint32](40)
	b, err := h.Allocate(8)
	require.NoError(t, err)
	assert.Len(t, b, 8)
	assert.Equal(t, int64(32), h.InUse())

	_, err = h.Allocate(3)
	assert.ErrorIs(t, err, api.ErrOutOfMemory)
	assert.Equal(t, int64(32), h.InUse())

	b[7] = 99
	b, err = h.Resize(b, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), b[7])
	assert.Equal(t, int64(40), h.InUse())

	require.NoError(t, h.Free(b))
	assert.Zero(t, h.InUse())

	_, err = h.Allocate(-1)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestMappedAllocatorRejectsPointers(t *testing.T) {
	_, err := NewMappedAllocator[*int]()
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewMappedAllocator[string]()
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewMappedAllocator[struct {
		A int
		B []byte
	}]()
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewMappedAllocator[struct{}]()
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = NewMappedAllocator[[4]float32]()
	assert.NoError(t, err)
}

func TestMappedAllocatorResize(t *testing.T) {
	m, err := NewMappedAllocator[int64]()
	require.NoError(t, err)

	b, err := m.Allocate(512)
	require.NoError(t, err)
	for i := range b {
		b[i] = int64(i)
	}
	b, err = m.Resize(b, 4096)
	require.NoError(t, err)
	assert.Len(t, b, 4096)
	assert.Equal(t, int64(511), b[511])
	assert.Zero(t, b[4095])
	assert.Equal(t, int64(4096*8), m.InUse())

	require.NoError(t, m.Free(b))
	assert.Zero(t, m.InUse())
	require.NoError(t, m.Free(nil))
}

func TestNewAllocator(t *testing.T) {
	a, err := NewAllocator[int]("heap", 0)
	require.NoError(t, err)
	assert.IsType(t, &HeapAllocator[int]{}, a)

	a, err = NewAllocator[int]("mmap", 0)
	require.NoError(t, err)
	assert.IsType(t, &MappedAllocator[int]{}, a)

	_, err = NewAllocator[*int]("mmap", 0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewAllocator[int]("numa", 0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
