// File: core/concurrency/spinlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SpinLock guards O(1) critical sections in pools and rings. It never parks
// the goroutine in the runtime; how it waits is decided by its Backoff.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// SpinLock is a test-and-test-and-set lock. The zero value is an unlocked
// lock using BackoffSpin. There is no fairness between waiters.
type SpinLock struct {
	_       cpu.CacheLinePad
	state   atomic.Uint32
	backoff Backoff
	_       cpu.CacheLinePad
}

// NewSpinLock returns an unlocked lock with the given policy.
func NewSpinLock(b Backoff) *SpinLock {
	return &SpinLock{backoff: b}
}

// Init sets the wait policy of an embedded lock. Not safe while the lock
// is in use.
func (l *SpinLock) Init(b Backoff) {
	l.backoff = b
}

// Backoff reports the lock's wait policy.
func (l *SpinLock) Backoff() Backoff { return l.backoff }

// Lock acquires the lock, waiting per the configured Backoff.
func (l *SpinLock) Lock() {
	if l.state.CompareAndSwap(0, 1) {
		return
	}
	l.lockSlow()
}

func (l *SpinLock) lockSlow() {
	for attempt := 0; ; attempt++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		l.backoff.Wait(attempt)
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *SpinLock) TryLock() bool {
	return l.state.Load() == 0 && l.state.CompareAndSwap(0, 1)
}

// Unlock releases the lock. Unlocking an unlocked SpinLock panics, as with
// sync.Mutex.
func (l *SpinLock) Unlock() {
	if l.state.Swap(0) == 0 {
		panic("concurrency: unlock of unlocked SpinLock")
	}
}
