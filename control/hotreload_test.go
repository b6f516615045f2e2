package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestReloadFile(t *testing.T) {
	cs := NewConfigStore()
	require.NoError(t, ReloadFile(cs, writeConfig(t, "[pool]\nbuffers = 4\n")))
	assert.Equal(t, 4, cs.Snapshot().Pool.Buffers)

	err := ReloadFile(cs, writeConfig(t, "[pool]\nbuffers = -1\n"))
	assert.Error(t, err)
	assert.Equal(t, 4, cs.Snapshot().Pool.Buffers)
}

func TestWatchFileReloads(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "mem.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ring]\ncapacity = 4\n"), 0o644))

	cs := NewConfigStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, cs, path, logr.Discard()) }()

	// The watcher may not be armed yet; keep replacing until it notices.
	assert.Eventually(t, func() bool {
		replaceFile(t, path, "[ring]\ncapacity = 12\n")
		return cs.Snapshot().Ring.Capacity == 12
	}, 5*time.Second, 20*time.Millisecond)

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("[ring]\ncapacity = 99\n"), 0o644))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 12, cs.Snapshot().Ring.Capacity)
}

// replaceFile swaps path's content through a rename so the watcher never
// observes a half-written file.
func replaceFile(t *testing.T, path, body string) {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
		t.Error(err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Error(err)
	}
}
