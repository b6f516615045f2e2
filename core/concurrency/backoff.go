// File: core/concurrency/backoff.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wait policies for contended spin locks, chosen at construction time.

package concurrency

import (
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/momentics/hioload-mem/api"
)

// Backoff selects how a SpinLock waits between acquisition attempts.
type Backoff uint8

const (
	// BackoffSpin busy-waits, yielding to the scheduler every spinYieldEvery
	// attempts so a holder parked on the same P can make progress.
	BackoffSpin Backoff = iota
	// BackoffYield calls runtime.Gosched on every failed attempt.
	BackoffYield
	// BackoffPark sleeps with exponential growth capped at parkMaxSleep.
	BackoffPark
)

const (
	spinYieldEvery = 64
	parkSpins      = 4
	parkMinSleep   = time.Microsecond
	parkMaxSleep   = time.Millisecond
)

func (b Backoff) String() string {
	switch b {
	case BackoffSpin:
		return "spin"
	case BackoffYield:
		return "yield"
	case BackoffPark:
		return "park"
	default:
		return "unknown"
	}
}

// Wait blocks the caller according to the policy. attempt counts failed
// acquisitions since the caller started waiting, starting at 0.
func (b Backoff) Wait(attempt int) {
	switch b {
	case BackoffYield:
		runtime.Gosched()
	case BackoffPark:
		if attempt < parkSpins {
			runtime.Gosched()
			return
		}
		shift := attempt - parkSpins
		if shift > 10 {
			shift = 10
		}
		d := parkMinSleep << shift
		if d > parkMaxSleep {
			d = parkMaxSleep
		}
		time.Sleep(d)
	default:
		if attempt%spinYieldEvery == spinYieldEvery-1 {
			runtime.Gosched()
			return
		}
		for i := 0; i < 30; i++ {
			spinHint()
		}
	}
}

//go:noinline
func spinHint() {}

// ParseBackoff maps a config name to a policy. "auto" and "" resolve to
// DefaultBackoff.
func ParseBackoff(name string) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return DefaultBackoff(), nil
	case "spin":
		return BackoffSpin, nil
	case "yield":
		return BackoffYield, nil
	case "park":
		return BackoffPark, nil
	}
	return 0, api.Errorf(api.ErrCodeInvalidArgument, "unknown backoff policy %q", name)
}

var defaultBackoff = sync.OnceValue(func() Backoff {
	if DebuggerAttached() {
		return BackoffYield
	}
	return BackoffSpin
})

// DefaultBackoff returns BackoffYield when a debugger or tracer is attached
// to the process and BackoffSpin otherwise. The probe runs once.
func DefaultBackoff() Backoff {
	return defaultBackoff()
}
