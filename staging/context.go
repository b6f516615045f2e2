// File: staging/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Context cycles a fixed set of frames through free, recording and
// in-flight. Free and in-flight frames sit in FIFO queues; work deferred
// until a frame completes sits in a min-heap keyed by frame number.

package staging

import (
	"cmp"
	"sync"

	"github.com/eapache/queue"
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/control"
	"github.com/momentics/hioload-mem/core/heap"
	"github.com/momentics/hioload-mem/pool"
)

type deferred struct {
	frame uint64
	seq   uint64
	fn    func()
}

func compareDeferred(a, b deferred) int {
	if c := cmp.Compare(a.frame, b.frame); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// Stats is a point-in-time view of a Context.
type Stats struct {
	FramesBegun     uint64
	FramesSubmitted uint64
	FramesCompleted uint64
	LastCompleted   uint64
	Free            int
	InFlight        int
	Recording       int
	DeferredPending int
	DeferredRun     uint64
	Records         int
	Scratch         pool.PoolStats
}

// Context owns the frames in flight of one producer/consumer pair.
type Context[T any] struct {
	mu       sync.Mutex
	frames   []*Frame[T]
	free     *queue.Queue
	inFlight *queue.Queue
	deferred *heap.MinHeap[deferred]
	scratch  *pool.ArrayPool[byte]
	log      logr.Logger

	nextID        uint64
	lastCompleted uint64
	seq           uint64
	closed        bool

	begun, submitted, completed, deferredRun uint64
}

// New builds a Context with cfg.FramesInFlight frames.
func New[T any](cfg Config, opts ...Option) (*Context[T], error) {
	switch {
	case cfg.FramesInFlight < 1:
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "staging: frames in flight must be at least 1, got %d", cfg.FramesInFlight)
	case cfg.InitialRecords < 0:
		return nil, api.Errorf(api.ErrCodeInvalidArgument, "staging: negative initial records %d", cfg.InitialRecords)
	}
	o := buildOptions(opts)

	scratch, err := pool.NewArrayPool[byte](cfg.ScratchLength, cfg.ScratchBuffers, o.pool()...)
	if err != nil {
		return nil, err
	}
	alloc, err := pool.NewAllocator[T](cfg.Allocator, 0)
	if err != nil {
		return nil, err
	}
	deferredHeap, err := heap.New(16, compareDeferred)
	if err != nil {
		return nil, err
	}

	c := &Context[T]{
		free:     queue.New(),
		inFlight: queue.New(),
		deferred: deferredHeap,
		scratch:  scratch,
		log:      o.log,
		nextID:   1,
	}
	arenaOpts := append(o.pool(), pool.WithMaxRecords(cfg.MaxRecords))
	for i := 0; i < cfg.FramesInFlight; i++ {
		a, err := pool.NewArenaWith(cfg.InitialRecords, alloc, arenaOpts...)
		if err != nil {
			c.disposeAll()
			return nil, err
		}
		f := &Frame[T]{arena: a, pool: scratch}
		c.frames = append(c.frames, f)
		c.free.Add(f)
	}
	return c, nil
}

// BeginFrame takes the oldest free frame and starts recording into it.
func (c *Context[T]) BeginFrame() (*Frame[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed()
	}
	if c.free.Length() == 0 {
		return nil, api.NewError(api.ErrCodeInvalidOperation, "staging: no free frame").
			WithContext("in_flight", c.inFlight.Length())
	}
	f := c.free.Remove().(*Frame[T])
	f.id.Store(c.nextID)
	c.nextID++
	f.state.Store(uint32(frameRecording))
	c.begun++
	c.log.V(2).Info("frame begun", "frame", f.ID())
	return f, nil
}

// Submit hands a recording frame to the consumer. Its records become
// read-only until Complete retires it.
func (c *Context[T]) Submit(f *Frame[T]) error {
	if f == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "staging: nil frame")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed()
	}
	if !c.owns(f) {
		return api.NewError(api.ErrCodeInvalidArgument, "staging: frame belongs to another context")
	}
	if !f.state.CompareAndSwap(uint32(frameRecording), uint32(frameInFlight)) {
		return f.stateError(frameRecording)
	}
	c.inFlight.Add(f)
	c.submitted++
	c.log.V(2).Info("frame submitted", "frame", f.ID(), "records", f.Count())
	return nil
}

// Complete is the consumer's fence: every in-flight frame numbered up to
// frameID is retired and returned to the free list, then deferred actions
// run in frame order for every frame that is now complete. A frame counts
// as complete only once it and every frame begun before it have retired,
// so a frame still recording holds back work deferred on later frames.
func (c *Context[T]) Complete(frameID uint64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed()
	}
	if frameID >= c.nextID {
		c.mu.Unlock()
		return api.Errorf(api.ErrCodeInvalidArgument, "staging: frame %d was never begun", frameID)
	}
	retired := 0
	for n := c.inFlight.Length(); n > 0; n-- {
		f := c.inFlight.Remove().(*Frame[T])
		if f.ID() > frameID {
			c.inFlight.Add(f)
			continue
		}
		f.retire()
		c.free.Add(f)
		retired++
	}
	if w := c.watermark(); w > c.lastCompleted {
		c.lastCompleted = w
	}
	c.completed += uint64(retired)
	due := c.popDue(c.lastCompleted)
	c.deferredRun += uint64(len(due))
	c.mu.Unlock()

	c.log.V(1).Info("frames completed", "upto", frameID, "retired", retired, "deferred", len(due))
	for _, d := range due {
		d.fn()
	}
	return nil
}

// Defer schedules fn to run once frame afterFrame has completed. If it
// already has, fn runs before Defer returns.
func (c *Context[T]) Defer(afterFrame uint64, fn func()) error {
	if fn == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "staging: nil deferred action")
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed()
	}
	if afterFrame <= c.lastCompleted {
		c.deferredRun++
		c.mu.Unlock()
		fn()
		return nil
	}
	c.seq++
	c.deferred.Add(deferred{frame: afterFrame, seq: c.seq, fn: fn})
	c.mu.Unlock()
	return nil
}

// watermark returns the highest frame number at or below which every begun
// frame has retired.
func (c *Context[T]) watermark() uint64 {
	w := c.nextID - 1
	for _, f := range c.frames {
		if frameState(f.state.Load()) == frameFree {
			continue
		}
		if id := f.ID(); id <= w {
			w = id - 1
		}
	}
	return w
}

func errClosed() error {
	return api.NewError(api.ErrCodeDisposed, "staging: context closed")
}

func (c *Context[T]) popDue(frameID uint64) []deferred {
	var due []deferred
	for c.deferred.Count() > 0 {
		d, _ := c.deferred.Peek()
		if d.frame > frameID {
			break
		}
		d, _ = c.deferred.RemoveFirst()
		due = append(due, d)
	}
	return due
}

func (c *Context[T]) owns(f *Frame[T]) bool {
	for _, g := range c.frames {
		if g == f {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of the context counters.
func (c *Context[T]) Stats() Stats {
	c.mu.Lock()
	s := Stats{
		FramesBegun:     c.begun,
		FramesSubmitted: c.submitted,
		FramesCompleted: c.completed,
		LastCompleted:   c.lastCompleted,
		Free:            c.free.Length(),
		InFlight:        c.inFlight.Length(),
		DeferredPending: c.deferred.Count(),
		DeferredRun:     c.deferredRun,
	}
	for _, f := range c.frames {
		if frameState(f.state.Load()) != frameFree {
			s.Records += f.Count()
		}
	}
	c.mu.Unlock()
	s.Recording = len(c.frames) - s.Free - s.InFlight
	s.Scratch = c.scratch.Stats()
	return s
}

// Publish writes the current Stats into reg under the "staging." prefix.
func (c *Context[T]) Publish(reg *control.MetricsRegistry) {
	s := c.Stats()
	reg.SetAll(map[string]any{
		"staging.frames_begun":     s.FramesBegun,
		"staging.frames_submitted": s.FramesSubmitted,
		"staging.frames_completed": s.FramesCompleted,
		"staging.frames_free":      s.Free,
		"staging.frames_in_flight": s.InFlight,
		"staging.frames_recording": s.Recording,
		"staging.deferred_pending": s.DeferredPending,
		"staging.deferred_run":     s.DeferredRun,
		"staging.records":          s.Records,
		"staging.scratch_rents":    s.Scratch.Rents,
		"staging.scratch_hits":     s.Scratch.Hits,
		"staging.scratch_discards": s.Scratch.Discards,
		"staging.scratch_cached":   s.Scratch.Cached,
	})
}

// Close disposes every arena. Pending deferred actions are dropped.
// Close is idempotent.
func (c *Context[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if n := c.deferred.Count(); n > 0 {
		c.log.Info("dropping deferred actions on close", "pending", n)
	}
	c.deferred.Clear()
	return c.disposeAll()
}

func (c *Context[T]) disposeAll() error {
	var first error
	for _, f := range c.frames {
		if err := f.arena.Dispose(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
