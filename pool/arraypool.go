// File: pool/arraypool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded cache of same-length arrays. Slots below the cursor have been
// handed out; slots at or above it may hold a cached array. Each operation
// is one short critical section under a SpinLock.

package pool

import (
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
)

// PoolStats aggregates rent/return accounting.
type PoolStats struct {
	Rents    uint64
	Hits     uint64
	Misses   uint64
	Returns  uint64
	Discards uint64
	Cached   int
}

// ArrayPool caches up to a fixed number of arrays of one length.
type ArrayPool[T any] struct {
	lock    concurrency.SpinLock
	buffers [][]T
	index   int

	bufferLength int
	log          logr.Logger

	rents    atomic.Uint64
	hits     atomic.Uint64
	returns  atomic.Uint64
	discards atomic.Uint64
}

// NewArrayPool creates a pool of numberOfBuffers empty slots for arrays of
// bufferLength elements.
func NewArrayPool[T any](bufferLength, numberOfBuffers int, opts ...Option) (*ArrayPool[T], error) {
	if bufferLength <= 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "array pool: buffer length must be positive, got %d", bufferLength)
	}
	if numberOfBuffers <= 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "array pool: number of buffers must be positive, got %d", numberOfBuffers)
	}
	o := buildOptions(opts)
	p := &ArrayPool[T]{
		buffers:      make([][]T, numberOfBuffers),
		bufferLength: bufferLength,
		log:          o.log,
	}
	p.lock.Init(o.backoff)
	return p, nil
}

// Rent returns a cached array when one is available and a freshly
// allocated one otherwise. The result always has BufferLength elements.
// Cached arrays keep whatever they held when returned without clearing.
func (p *ArrayPool[T]) Rent() []T {
	var buf []T
	p.lock.Lock()
	if p.index < len(p.buffers) {
		buf = p.buffers[p.index]
		p.buffers[p.index] = nil
		p.index++
	}
	p.lock.Unlock()

	p.rents.Add(1)
	if buf == nil {
		return make([]T, p.bufferLength)
	}
	p.hits.Add(1)
	return buf
}

// Return caches arr for a later Rent, zeroing it first when clearArray is
// set. If the pool is already full the array is dropped. Arrays of the
// wrong length are rejected.
func (p *ArrayPool[T]) Return(arr []T, clearArray bool) error {
	if len(arr) != p.bufferLength {
		return api.Errorf(api.ErrCodeInvalidArgument,
			"array pool: buffer of length %d does not belong to pool of length %d", len(arr), p.bufferLength)
	}
	p.lock.Lock()
	stored := p.index > 0
	if stored {
		if clearArray {
			clear(arr)
		}
		p.index--
		p.buffers[p.index] = arr
	}
	p.lock.Unlock()

	if !stored {
		p.discards.Add(1)
		p.log.V(2).Info("array pool full, buffer dropped", "length", p.bufferLength)
		return nil
	}
	p.returns.Add(1)
	return nil
}

// BufferLength returns the length of every array the pool hands out.
func (p *ArrayPool[T]) BufferLength() int { return p.bufferLength }

// Stats returns a snapshot of the pool counters.
func (p *ArrayPool[T]) Stats() PoolStats {
	p.lock.Lock()
	cached := 0
	for _, b := range p.buffers[p.index:] {
		if b != nil {
			cached++
		}
	}
	p.lock.Unlock()
	hits := p.hits.Load()
	rents := p.rents.Load()
	return PoolStats{
		Rents:    rents,
		Hits:     hits,
		Misses:   rents - hits,
		Returns:  p.returns.Load(),
		Discards: p.discards.Load(),
		Cached:   cached,
	}
}

var _ api.ArrayPool[byte] = (*ArrayPool[byte])(nil)
