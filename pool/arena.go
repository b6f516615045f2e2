// File: pool/arena.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Arena is a growable block of fixed-size records that many goroutines
// reserve from concurrently. The fast path is one atomic add; growth is the
// only serialized section and is double-checked under the write lock.
//
// Callers receive a Span (generation, offset, length) rather than a pointer.
// Offsets stay valid across growth; all memory access goes through Write,
// Copy, Load and View, which hold the read lock, so a relocation can never
// race with a write into the block.

package pool

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"golang.org/x/sys/cpu"

	"github.com/momentics/hioload-mem/api"
)

// Span is a reserved range of arena records.
type Span struct {
	Gen    uint64
	Offset int
	Len    int
}

// End returns the offset one past the last record.
func (s Span) End() int { return s.Offset + s.Len }

// ArenaStats is a point-in-time view of an arena.
type ArenaStats struct {
	Count        int
	Capacity     int
	Generation   uint64
	Reservations uint64
	Growths      uint64
	Resets       uint64
}

// Arena hands out disjoint spans of a growable record block.
type Arena[T any] struct {
	count atomic.Int64
	_     cpu.CacheLinePad
	limit atomic.Int64 // len(block), read on the fast path
	gen   atomic.Uint64

	mu       sync.RWMutex
	block    []T
	alloc    api.Allocator[T]
	disposed atomic.Bool

	maxRecords int
	log        logr.Logger

	reservations atomic.Uint64
	growths      atomic.Uint64
	resets       atomic.Uint64
}

// NewArena creates an arena of initialCount records on the Go heap.
func NewArena[T any](initialCount int, opts ...Option) (*Arena[T], error) {
	return NewArenaWith(initialCount, DefaultAllocator[T](), opts...)
}

// NewArenaWith creates an arena whose block comes from alloc.
func NewArenaWith[T any](initialCount int, alloc api.Allocator[T], opts ...Option) (*Arena[T], error) {
	if initialCount < 0 {
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "arena: negative initial count %d", initialCount)
	}
	if alloc == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "arena: nil allocator")
	}
	o := buildOptions(opts)
	if o.maxRecords > 0 && initialCount > o.maxRecords {
		return nil, api.Errorf(api.ErrCodeInvalidArgument,
			"arena: initial count %d exceeds max records %d", initialCount, o.maxRecords)
	}
	block, err := alloc.Allocate(initialCount)
	if err != nil {
		return nil, err
	}
	a := &Arena[T]{
		block:      block,
		alloc:      alloc,
		maxRecords: o.maxRecords,
		log:        o.log,
	}
	a.limit.Store(int64(len(block)))
	a.gen.Store(1)
	return a, nil
}

// Reserve claims n contiguous records and returns their span. Concurrent
// callers always receive disjoint spans. When the claim runs past the
// current capacity the block is grown before Reserve returns.
//
// Reserve must not race with Reset: a span reserved across a Reset may
// carry either generation.
func (a *Arena[T]) Reserve(n int) (Span, error) {
	if n < 0 {
		return Span{}, api.Errorf(api.ErrCodeInvalidArgument, "arena: negative reservation %d", n)
	}
	if a.disposed.Load() {
		return Span{}, errArenaDisposed()
	}
	if int64(n) > math.MaxInt64-a.count.Load() {
		return Span{}, a.exhausted(n)
	}
	end := a.count.Add(int64(n))
	if end < 0 {
		// A concurrent claim slipped past the check above and wrapped the counter.
		a.count.Add(-int64(n))
		return Span{}, a.exhausted(n)
	}
	start := end - int64(n)
	gen := a.gen.Load()
	a.reservations.Add(1)
	if end > a.limit.Load() {
		if err := a.grow(end); err != nil {
			return Span{}, err
		}
	}
	return Span{Gen: gen, Offset: int(start), Len: n}, nil
}

func (a *Arena[T]) exhausted(n int) error {
	return api.NewError(api.ErrCodeOutOfMemory, "arena: reservation overflows record counter").
		WithContext("requested", n).
		WithContext("count", a.count.Load())
}

func errArenaDisposed() error {
	return api.NewError(api.ErrCodeDisposed, "arena: disposed")
}

func (a *Arena[T]) grow(end int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed.Load() {
		return errArenaDisposed()
	}
	old := len(a.block)
	if end <= int64(old) {
		return nil
	}
	if end > math.MaxInt || (a.maxRecords > 0 && end > int64(a.maxRecords)) {
		return api.NewError(api.ErrCodeOutOfMemory, "arena: capacity exhausted").
			WithContext("required", end).
			WithContext("max", a.maxRecords)
	}
	next := int64(old) * 2
	if next < end {
		next = end
	}
	if a.maxRecords > 0 && next > int64(a.maxRecords) {
		next = int64(a.maxRecords)
	}
	block, err := a.alloc.Resize(a.block, int(next))
	if err != nil {
		a.log.Error(err, "arena grow failed", "from", old, "to", next)
		return err
	}
	a.block = block
	a.limit.Store(next)
	a.growths.Add(1)
	a.log.V(1).Info("arena grown", "from", old, "to", next, "count", end)
	return nil
}

// Write runs fn over the records of s. fn must not retain dst.
func (a *Arena[T]) Write(s Span, fn func(dst []T)) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.checkSpan(s); err != nil {
		return err
	}
	fn(a.block[s.Offset:s.End():s.End()])
	return nil
}

// Copy stores src at the start of s. src must fit in s.
func (a *Arena[T]) Copy(s Span, src []T) error {
	if len(src) > s.Len {
		return api.Errorf(api.ErrCodeInvalidArgument, "arena: %d records do not fit span of %d", len(src), s.Len)
	}
	return a.Write(s, func(dst []T) { copy(dst, src) })
}

// Load copies the records of s into dst and returns the number copied.
func (a *Arena[T]) Load(s Span, dst []T) (int, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.checkSpan(s); err != nil {
		return 0, err
	}
	return copy(dst, a.block[s.Offset:s.End()]), nil
}

// View hands fn the reserved prefix of the raw block, e.g. for an upload
// to the GPU. The block cannot move while fn runs; fn must not retain it.
func (a *Arena[T]) View(fn func(block []T) error) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.disposed.Load() {
		return errArenaDisposed()
	}
	n := int(a.count.Load())
	if n > len(a.block) {
		n = len(a.block)
	}
	return fn(a.block[:n:n])
}

func (a *Arena[T]) checkSpan(s Span) error {
	if a.disposed.Load() {
		return errArenaDisposed()
	}
	if gen := a.gen.Load(); s.Gen != gen {
		return api.NewError(api.ErrCodeInvalidOperation, "arena: stale span").
			WithContext("span_gen", s.Gen).
			WithContext("arena_gen", gen)
	}
	if s.Offset < 0 || s.Len < 0 || s.Offset > len(a.block)-s.Len {
		return api.Errorf(api.ErrCodeOutOfRange, "arena: span of %d at %d outside block of %d",
			s.Len, s.Offset, len(a.block))
	}
	return nil
}

// Reset rewinds the arena to empty and starts a new generation. Memory is
// neither cleared nor released; spans from earlier generations are rejected.
func (a *Arena[T]) Reset() {
	a.mu.Lock()
	a.count.Store(0)
	a.gen.Add(1)
	a.mu.Unlock()
	a.resets.Add(1)
}

// Dispose releases the block. It is idempotent; later reservations fail
// with ErrCodeDisposed.
func (a *Arena[T]) Dispose() error {
	if !a.disposed.CompareAndSwap(false, true) {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	block := a.block
	a.block = nil
	a.limit.Store(0)
	return a.alloc.Free(block)
}

// Count returns the reservation high-water mark. During concurrent growth
// it may briefly exceed Len.
func (a *Arena[T]) Count() int { return int(a.count.Load()) }

// Len returns the allocated capacity in records.
func (a *Arena[T]) Len() int { return int(a.limit.Load()) }

// Generation identifies the current reset cycle.
func (a *Arena[T]) Generation() uint64 { return a.gen.Load() }

// Stats returns a snapshot of the arena counters.
func (a *Arena[T]) Stats() ArenaStats {
	return ArenaStats{
		Count:        a.Count(),
		Capacity:     a.Len(),
		Generation:   a.Generation(),
		Reservations: a.reservations.Load(),
		Growths:      a.growths.Load(),
		Resets:       a.resets.Load(),
	}
}
