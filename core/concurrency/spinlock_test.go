package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinLockMutualExclusion(t *testing.T) {
	for _, b := range []Backoff{BackoffSpin, BackoffYield, BackoffPark} {
		t.Run(b.String(), func(t *testing.T) {
			l := NewSpinLock(b)
			const workers, iters = 8, 2000
			counter := 0
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < iters; i++ {
						l.Lock()
						counter++
						l.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, workers*iters, counter)
		})
	}
}

func TestSpinLockTryLock(t *testing.T) {
	var l SpinLock
	require.True(t, l.TryLock())
	assert.False(t, l.TryLock())
	l.Unlock()
	assert.True(t, l.TryLock())
	l.Unlock()
}

func TestSpinLockUnlockUnlockedPanics(t *testing.T) {
	var l SpinLock
	assert.Panics(t, func() { l.Unlock() })
}

func TestParseBackoff(t *testing.T) {
	cases := map[string]Backoff{
		"spin":  BackoffSpin,
		"YIELD": BackoffYield,
		" park": BackoffPark,
		"auto":  DefaultBackoff(),
		"":      DefaultBackoff(),
	}
	for in, want := range cases {
		got, err := ParseBackoff(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBackoff("sleepy")
	assert.Error(t, err)
}

func TestBackoffWaitReturns(t *testing.T) {
	for _, b := range []Backoff{BackoffSpin, BackoffYield, BackoffPark} {
		for attempt := 0; attempt < 20; attempt++ {
			b.Wait(attempt)
		}
	}
}
