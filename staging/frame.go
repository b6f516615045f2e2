// File: staging/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package staging

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/pool"
)

type frameState uint32

const (
	frameFree frameState = iota
	frameRecording
	frameInFlight
)

func (s frameState) String() string {
	switch s {
	case frameFree:
		return "free"
	case frameRecording:
		return "recording"
	case frameInFlight:
		return "in-flight"
	}
	return "unknown"
}

// Frame is one slot of staging memory. Reserve, Write, Copy and Scratch
// are safe for concurrent use while the frame is recording.
type Frame[T any] struct {
	id    atomic.Uint64
	state atomic.Uint32
	arena *pool.Arena[T]

	mu      sync.Mutex
	scratch [][]byte
	pool    *pool.ArrayPool[byte]
}

// ID returns the frame number assigned by BeginFrame.
func (f *Frame[T]) ID() uint64 { return f.id.Load() }

// Reserve claims n records in the frame's arena.
func (f *Frame[T]) Reserve(n int) (pool.Span, error) {
	if err := f.require(frameRecording); err != nil {
		return pool.Span{}, err
	}
	return f.arena.Reserve(n)
}

// Write runs fn over the records of s.
func (f *Frame[T]) Write(s pool.Span, fn func(dst []T)) error {
	if err := f.require(frameRecording); err != nil {
		return err
	}
	return f.arena.Write(s, fn)
}

// Copy stores src at the start of s.
func (f *Frame[T]) Copy(s pool.Span, src []T) error {
	if err := f.require(frameRecording); err != nil {
		return err
	}
	return f.arena.Copy(s, src)
}

// View hands fn the records reserved so far. It is allowed while recording
// and while in flight, the latter being where a consumer uploads the batch.
func (f *Frame[T]) View(fn func(records []T) error) error {
	if frameState(f.state.Load()) == frameFree {
		return f.stateError(frameInFlight)
	}
	return f.arena.View(fn)
}

// Count returns the number of records reserved in this frame.
func (f *Frame[T]) Count() int { return f.arena.Count() }

// Scratch rents a byte array that stays valid until the frame retires.
func (f *Frame[T]) Scratch() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.require(frameRecording); err != nil {
		return nil, err
	}
	b := f.pool.Rent()
	f.scratch = append(f.scratch, b)
	return b, nil
}

func (f *Frame[T]) require(want frameState) error {
	if frameState(f.state.Load()) != want {
		return f.stateError(want)
	}
	return nil
}

func (f *Frame[T]) stateError(want frameState) error {
	return api.Errorf(api.ErrCodeInvalidOperation, "staging: frame %d is %s, want %s",
		f.ID(), frameState(f.state.Load()), want)
}

// retire rewinds the arena and hands scratch arrays back cleared. The state
// flips under f.mu so no Scratch call can attach an array once the list has
// been taken.
func (f *Frame[T]) retire() (returned int) {
	f.arena.Reset()
	f.mu.Lock()
	scratch := f.scratch
	f.scratch = nil
	f.state.Store(uint32(frameFree))
	f.mu.Unlock()
	for _, b := range scratch {
		if f.pool.Return(b, true) == nil {
			returned++
		}
	}
	return returned
}
