// File: cmd/primbench/bench.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/momentics/hioload-mem/affinity"
	"github.com/momentics/hioload-mem/control"
	"github.com/momentics/hioload-mem/core/heap"
	"github.com/momentics/hioload-mem/pool"
	"github.com/momentics/hioload-mem/staging"
)

type benchEnv struct {
	cfg     control.Config
	store   *control.ConfigStore
	workers int
	ops     int
	limit   rate.Limit
	log     logr.Logger
	metrics *control.MetricsRegistry
	pinCPUs []int
}

// pinWorker pins worker w to one of pinCPUs, round-robin. Pinning is best
// effort; a failure only costs locality.
func (e *benchEnv) pinWorker(w int) {
	if len(e.pinCPUs) == 0 {
		return
	}
	cpu := e.pinCPUs[w%len(e.pinCPUs)]
	if err := affinity.Pin(cpu); err != nil {
		e.log.V(1).Info("worker not pinned", "worker", w, "cpu", cpu, "err", err)
	}
}

func (e *benchEnv) poolOptions() []pool.Option {
	return []pool.Option{pool.WithLogger(e.log), pool.WithBackoff(e.cfg.Backoff())}
}

// each runs fn(worker, op) for every op of every worker under one errgroup,
// pacing each worker with its own limiter.
func (e *benchEnv) each(ctx context.Context, fn func(w, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < e.workers; w++ {
		g.Go(func() error {
			e.pinWorker(w)
			lim := rate.NewLimiter(e.limit, 1)
			for i := 0; i < e.ops; i++ {
				if err := lim.Wait(ctx); err != nil {
					return err
				}
				if err := fn(w, i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

type result struct {
	name    string
	ops     int
	elapsed time.Duration
	check   string
}

func (r result) rate() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.ops) / r.elapsed.Seconds()
}

type runner func(ctx context.Context, env *benchEnv) (string, error)

var (
	benchOrder = []string{"arena", "pool", "ring", "heap", "staging"}
	runners    = map[string]runner{
		"arena":   benchArena,
		"pool":    benchPool,
		"ring":    benchRing,
		"heap":    benchHeap,
		"staging": benchStaging,
	}
)

// runAll executes the named runners in order and stops at the first
// failing invariant.
func runAll(ctx context.Context, env *benchEnv, names ...string) ([]result, error) {
	var results []result
	for _, name := range names {
		run, ok := runners[name]
		if !ok {
			return results, fmt.Errorf("unknown benchmark %q", name)
		}
		if env.store != nil {
			env.cfg = env.store.Snapshot()
		}
		env.log.V(1).Info("benchmark starting", "name", name, "workers", env.workers, "ops", env.ops)
		start := time.Now()
		check, err := run(ctx, env)
		r := result{name: name, ops: env.workers * env.ops, elapsed: time.Since(start), check: check}
		if err != nil {
			r.check = "FAIL: " + err.Error()
			results = append(results, r)
			return results, fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, r)
		env.metrics.SetAll(map[string]any{
			"bench." + name + ".ops":         r.ops,
			"bench." + name + ".ops_per_sec": r.rate(),
		})
		env.log.Info("benchmark done", "name", name, "elapsed", r.elapsed, "check", check)
	}
	return results, nil
}

func renderResults(w io.Writer, results []result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Primitive", "Ops", "Elapsed", "Ops/s", "Check"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range results {
		table.Append([]string{
			r.name,
			strconv.Itoa(r.ops),
			r.elapsed.Round(time.Microsecond).String(),
			strconv.FormatFloat(r.rate(), 'f', 0, 64),
			r.check,
		})
	}
	table.Render()
}

// benchArena reserves variable-size spans from every worker and checks that
// the spans tile the arena: record i must hold i+1 after all writes.
func benchArena(ctx context.Context, env *benchEnv) (string, error) {
	ac := env.cfg.Arena
	alloc, err := pool.NewAllocator[uint64](ac.Allocator, ac.HeapLimitBytes)
	if err != nil {
		return "", err
	}
	a, err := pool.NewArenaWith(ac.InitialRecords, alloc,
		append(env.poolOptions(), pool.WithMaxRecords(ac.MaxRecords))...)
	if err != nil {
		return "", err
	}
	defer a.Dispose()

	var reserved atomic.Int64
	err = env.each(ctx, func(w, i int) error {
		n := 1 + (w+i)%8
		s, err := a.Reserve(n)
		if err != nil {
			return err
		}
		reserved.Add(int64(n))
		return a.Write(s, func(dst []uint64) {
			for j := range dst {
				dst[j] = uint64(s.Offset+j) + 1
			}
		})
	})
	if err != nil {
		return "", err
	}
	if want := int(reserved.Load()); a.Count() != want {
		return "", fmt.Errorf("arena count %d, reserved %d", a.Count(), want)
	}
	err = a.View(func(block []uint64) error {
		for i, v := range block {
			if v != uint64(i)+1 {
				return fmt.Errorf("record %d holds %d: spans overlap or leave a gap", i, v)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	st := a.Stats()
	return fmt.Sprintf("ok: %d records, %d growths", st.Count, st.Growths), nil
}

func benchPool(ctx context.Context, env *benchEnv) (string, error) {
	pc := env.cfg.Pool
	p, err := pool.NewArrayPool[byte](pc.BufferLength, pc.Buffers, env.poolOptions()...)
	if err != nil {
		return "", err
	}
	err = env.each(ctx, func(w, i int) error {
		b := p.Rent()
		if len(b) != pc.BufferLength {
			return fmt.Errorf("rented %d bytes, want %d", len(b), pc.BufferLength)
		}
		b[0] = byte(w)
		return p.Return(b, i%2 == 0)
	})
	if err != nil {
		return "", err
	}
	st := p.Stats()
	if st.Rents != st.Returns+st.Discards {
		return "", fmt.Errorf("rents %d != returns %d + discards %d", st.Rents, st.Returns, st.Discards)
	}
	return fmt.Sprintf("ok: hit rate %.1f%%", 100*float64(st.Hits)/float64(max(st.Rents, 1))), nil
}

func benchRing(ctx context.Context, env *benchEnv) (string, error) {
	if err := checkOverwriteLaw(); err != nil {
		return "", err
	}
	r, err := pool.NewCircularBufferWith[int](env.cfg.Ring.Capacity, nil, env.poolOptions()...)
	if err != nil {
		return "", err
	}
	err = env.each(ctx, func(w, i int) error {
		r.Put(w*env.ops + i)
		if i%2 == 1 {
			_, _ = r.Get()
		}
		if n := r.Len(); n > r.Cap() {
			return fmt.Errorf("ring holds %d > capacity %d", n, r.Cap())
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ok: %d/%d held", r.Len(), r.Cap()), nil
}

// checkOverwriteLaw: a ring of 3 fed 1..4 yields 2, 3, 4 and is then empty.
func checkOverwriteLaw() error {
	r, err := pool.NewCircularBuffer[int](3)
	if err != nil {
		return err
	}
	for i := 1; i <= 4; i++ {
		r.Put(i)
	}
	for want := 2; want <= 4; want++ {
		if got, err := r.Get(); err != nil || got != want {
			return fmt.Errorf("overwrite law: got %d (%v), want %d", got, err, want)
		}
	}
	if _, err := r.Get(); err == nil {
		return fmt.Errorf("overwrite law: ring not empty after draining")
	}
	return nil
}

// benchHeap gives each worker its own heap; the heap is not synchronized.
func benchHeap(ctx context.Context, env *benchEnv) (string, error) {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < env.workers; w++ {
		g.Go(func() error {
			env.pinWorker(w)
			h, err := heap.New(0, cmp.Compare[int])
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(uint64(w), 0))
			lim := rate.NewLimiter(env.limit, 1)
			for i := 0; i < env.ops; i++ {
				if err := lim.Wait(ctx); err != nil {
					return err
				}
				h.Add(rng.IntN(1 << 20))
			}
			prev := -1
			for h.Count() > 0 {
				v, err := h.RemoveFirst()
				if err != nil {
					return err
				}
				if v < prev {
					return fmt.Errorf("heap order violated: %d after %d", v, prev)
				}
				prev = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return "ok: sorted", nil
}

// benchStaging records frames from all workers, submits them and retires
// each once the consumer has checked its record count.
func benchStaging(ctx context.Context, env *benchEnv) (string, error) {
	sc, err := staging.New[uint64](env.cfg.Staging,
		staging.WithLogger(env.log), staging.WithBackoff(env.cfg.Backoff()))
	if err != nil {
		return "", err
	}
	defer sc.Close()

	const opsPerFrame = 256
	frames := (env.ops + opsPerFrame - 1) / opsPerFrame
	var retired int
	for n := 0; n < frames; n++ {
		f, err := sc.BeginFrame()
		if err != nil {
			return "", err
		}
		perWorker := min(opsPerFrame, env.ops-n*opsPerFrame)
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < env.workers; w++ {
			g.Go(func() error {
				env.pinWorker(w)
				lim := rate.NewLimiter(env.limit, 1)
				for i := 0; i < perWorker; i++ {
					if err := lim.Wait(gctx); err != nil {
						return err
					}
					s, err := f.Reserve(1)
					if err != nil {
						return err
					}
					if err := f.Copy(s, []uint64{f.ID()}); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
		if err := sc.Submit(f); err != nil {
			return "", err
		}
		err = f.View(func(records []uint64) error {
			if len(records) != perWorker*env.workers {
				return fmt.Errorf("frame %d holds %d records, want %d", f.ID(), len(records), perWorker*env.workers)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		if err := sc.Defer(f.ID(), func() { retired++ }); err != nil {
			return "", err
		}
		if err := sc.Complete(f.ID()); err != nil {
			return "", err
		}
	}
	sc.Publish(env.metrics)
	if retired != frames {
		return "", fmt.Errorf("%d deferred retirements ran, want %d", retired, frames)
	}
	return fmt.Sprintf("ok: %d frames", frames), nil
}
