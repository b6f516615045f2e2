package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/momentics/hioload-mem/control"
)

func testEnv() *benchEnv {
	cfg := control.DefaultConfig()
	cfg.Arena.InitialRecords = 4
	cfg.Staging.InitialRecords = 8
	return &benchEnv{
		cfg:     cfg,
		workers: 4,
		ops:     600,
		limit:   rate.Inf,
		log:     logr.Discard(),
		metrics: control.NewMetricsRegistry(),
	}
}

func TestRunners(t *testing.T) {
	for _, name := range benchOrder {
		t.Run(name, func(t *testing.T) {
			env := testEnv()
			results, err := runAll(context.Background(), env, name)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Contains(t, results[0].check, "ok")
			assert.Equal(t, 2400, env.metrics.GetSnapshot()["bench."+name+".ops"])
		})
	}
}

func TestStagingPublishes(t *testing.T) {
	env := testEnv()
	_, err := runAll(context.Background(), env, "staging")
	require.NoError(t, err)
	snap := env.metrics.GetSnapshot()
	assert.Equal(t, uint64(3), snap["staging.frames_completed"])
	assert.Equal(t, 0, snap["staging.frames_in_flight"])
}

func TestRunAllUnknown(t *testing.T) {
	_, err := runAll(context.Background(), testEnv(), "btree")
	assert.ErrorContains(t, err, "unknown benchmark")
}

func TestMappedArena(t *testing.T) {
	env := testEnv()
	env.cfg.Arena.Allocator = "mmap"
	_, err := runAll(context.Background(), env, "arena")
	require.NoError(t, err)
}

func TestAppAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ring]\ncapacity = 16\n[spin]\nbackoff = \"yield\"\n"), 0o644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run([]string{"primbench", "--config", path, "--workers", "2", "--ops", "300", "--pin", "all"})
	require.NoError(t, err)
	for _, name := range benchOrder {
		assert.Contains(t, out.String(), name)
	}
	assert.Contains(t, out.String(), "ok: ")
}

func TestRunAllFollowsConfigStore(t *testing.T) {
	env := testEnv()
	env.store = control.NewConfigStore()
	require.NoError(t, env.store.Set(env.cfg))

	results, err := runAll(context.Background(), env, "ring")
	require.NoError(t, err)
	assert.Contains(t, results[0].check, "/1024 held")

	next := env.store.Snapshot()
	next.Ring.Capacity = 5
	require.NoError(t, env.store.Set(next))
	results, err = runAll(context.Background(), env, "ring")
	require.NoError(t, err)
	assert.Contains(t, results[0].check, "/5 held")
}

func TestAppWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ring]\ncapacity = 16\n"), 0o644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run([]string{"primbench", "--config", path, "--watch", "--workers", "2", "--ops", "300", "ring"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "ring")

	app = newApp()
	app.Writer = &bytes.Buffer{}
	err = app.Run([]string{"primbench", "--watch", "ring"})
	assert.ErrorContains(t, err, "--watch requires --config")
}

func TestAppConfig(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"primbench", "config"}))
	assert.Contains(t, out.String(), "[staging]")
	assert.Contains(t, out.String(), "frames_in_flight = 3")
}

func TestAppRejectsBadFlags(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"primbench", "--workers", "0", "ring"})
	assert.Error(t, err)
}
