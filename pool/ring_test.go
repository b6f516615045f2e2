package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/momentics/hioload-mem/api"
)

func TestCircularBufferOverwrite(t *testing.T) {
	r, err := NewCircularBuffer[int](3)
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		r.Put(i)
	}
	assert.True(t, r.IsFull())
	for _, want := range []int{2, 3, 4} {
		got, err := r.Get()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = r.Get()
	assert.ErrorIs(t, err, api.ErrInvalidOperation)
}

func TestCircularBufferEmpty(t *testing.T) {
	r, err := NewCircularBuffer[string](1024)
	require.NoError(t, err)
	assert.True(t, r.IsEmpty())
	assert.Equal(t, 1024, r.Cap())

	_, err = r.Get()
	assert.ErrorIs(t, err, api.ErrInvalidOperation)
	_, err = r.Peek()
	assert.ErrorIs(t, err, api.ErrInvalidOperation)
}

func TestCircularBufferSeed(t *testing.T) {
	r, err := NewCircularBuffer(4, 'a', 'b', 'c')
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []rune{'a', 'b', 'c'}, r.ToSlice())

	r.Put('d')
	r.Put('e')
	assert.Equal(t, []rune{'b', 'c', 'd', 'e'}, r.ToSlice())

	full, err := NewCircularBuffer(2, 1, 2)
	require.NoError(t, err)
	full.Put(3)
	v, _ := full.Peek()
	assert.Equal(t, 2, v)

	_, err = NewCircularBuffer(2, 1, 2, 3)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = NewCircularBuffer[int](0)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestCircularBufferIndexer(t *testing.T) {
	r, _ := NewCircularBuffer(3, 10, 20, 30)
	r.Put(40) // tail wraps

	v, err := r.At(0)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	v, _ = r.At(0)
	assert.Equal(t, 20, v, "At is non-destructive")

	require.NoError(t, r.Set(2, 41))
	v, _ = r.At(2)
	assert.Equal(t, 41, v)

	v, err = r.Consume(1)
	require.NoError(t, err)
	assert.Equal(t, 30, v)
	assert.Equal(t, 3, r.Len(), "consume keeps the slot occupied")
	v, _ = r.At(1)
	assert.Zero(t, v)

	_, err = r.At(3)
	assert.ErrorIs(t, err, api.ErrOutOfRange)
	_, err = r.At(-1)
	assert.ErrorIs(t, err, api.ErrOutOfRange)
	assert.ErrorIs(t, r.Set(5, 1), api.ErrOutOfRange)
	_, err = r.Consume(3)
	assert.ErrorIs(t, err, api.ErrOutOfRange)
}

func TestCircularBufferClear(t *testing.T) {
	r, _ := NewCircularBuffer(3, 1, 2, 3)
	r.Clear()
	assert.True(t, r.IsEmpty())
	assert.Equal(t, 3, r.Cap())
	r.Put(9)
	v, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestCircularBufferConcurrent(t *testing.T) {
	r, _ := NewCircularBuffer[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				r.Put(p*5000 + i)
				if i%3 == 0 {
					_, _ = r.Get()
				}
			}
		}(p)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 64)
	assert.Len(t, r.ToSlice(), r.Len())
}

// TestCircularBufferModel checks the ring against a slice model that
// drops its head on overflow.
func TestCircularBufferModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		r, err := NewCircularBuffer[int](capacity)
		if err != nil {
			t.Fatal(err)
		}
		var model []int
		steps := rapid.IntRange(1, 300).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1:
				v := rapid.Int().Draw(t, "v")
				r.Put(v)
				model = append(model, v)
				if len(model) > capacity {
					model = model[1:]
				}
			case 2:
				v, err := r.Get()
				if len(model) == 0 {
					if err == nil {
						t.Fatal("Get on empty ring succeeded")
					}
					continue
				}
				if err != nil || v != model[0] {
					t.Fatalf("Get = %d, %v; want %d", v, err, model[0])
				}
				model = model[1:]
			case 3:
				r.Clear()
				model = model[:0]
			}
			if r.Len() != len(model) {
				t.Fatalf("Len = %d, want %d", r.Len(), len(model))
			}
		}
	})
}
