package control

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mem.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[ring]
capacity = 8

[spin]
backoff = "park"

[staging]
frames_in_flight = 2
allocator = "mmap"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Ring.Capacity)
	assert.Equal(t, concurrency.BackoffPark, cfg.Backoff())
	assert.Equal(t, 2, cfg.Staging.FramesInFlight)
	assert.Equal(t, "mmap", cfg.Staging.Allocator)
	assert.Equal(t, DefaultConfig().Pool, cfg.Pool)
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "[ring]\ncapcity = 8\n",
		"bad capacity":   "[ring]\ncapacity = 0\n",
		"bad backoff":    "[spin]\nbackoff = \"sleepy\"\n",
		"bad allocator":  "[arena]\nallocator = \"numa\"\n",
		"initial>max":    "[arena]\ninitial_records = 10\nmax_records = 5\n",
		"malformed toml": "[ring\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestConfigEncodeDecodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DefaultConfig().Encode(&buf))
	assert.Contains(t, buf.String(), "[staging]")

	var back Config
	_, err := toml.Decode(buf.String(), &back)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), back)
}

func TestConfigStoreSet(t *testing.T) {
	cs := NewConfigStore()
	var calls []int
	cs.OnReload(func(old, cur Config) {
		calls = append(calls, old.Ring.Capacity*1000+cur.Ring.Capacity)
	})

	next := cs.Snapshot()
	next.Ring.Capacity = 16
	require.NoError(t, cs.Set(next))
	assert.Equal(t, 16, cs.Snapshot().Ring.Capacity)
	assert.Equal(t, []int{1024*1000 + 16}, calls)

	bad := next
	bad.Pool.Buffers = 0
	assert.ErrorIs(t, cs.Set(bad), api.ErrInvalidArgument)
	assert.Equal(t, next, cs.Snapshot())
	assert.Len(t, calls, 1)
}
