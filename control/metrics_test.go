package control

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistrySnapshot(t *testing.T) {
	mr := NewMetricsRegistry()
	assert.True(t, mr.Updated().IsZero())

	mr.Set("arena.count", 10)
	mr.SetAll(map[string]any{"pool.hits": uint64(3), "ring.name": "events"})

	snap := mr.GetSnapshot()
	assert.Len(t, snap, 3)
	snap["arena.count"] = 0
	assert.Equal(t, 10, mr.GetSnapshot()["arena.count"], "snapshot is a copy")
	assert.False(t, mr.Updated().IsZero())
}

func TestPrometheusCollector(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.SetAll(map[string]any{
		"arena.count":     42,
		"pool.hits":       uint64(7),
		"platform.debug":  true,
		"ring.label-text": "skipped",
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewPrometheusCollector(mr, "hioload_mem")))
	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		got[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"hioload_mem_arena_count":    42,
		"hioload_mem_pool_hits":      7,
		"hioload_mem_platform_debug": 1,
	}, got)
}

func TestControllerAndProbes(t *testing.T) {
	c, err := NewController(DefaultConfig())
	require.NoError(t, err)

	names := c.Debug.Names()
	assert.Contains(t, names, "platform.cpus")
	assert.Contains(t, names, "platform.debugger_attached")

	c.RegisterDebugProbe("arena.count", func() any { return 5 })
	state := c.Debug.DumpState()
	assert.Equal(t, 5, state["arena.count"])
	assert.IsType(t, false, state["platform.debugger_attached"])

	reloaded := 0
	c.OnReload(func() { reloaded++ })
	cfg := DefaultConfig()
	cfg.Ring.Capacity = 2
	require.NoError(t, c.Config.Set(cfg))
	assert.Equal(t, 1, reloaded)

	c.Metrics.Set("x", 1)
	assert.Equal(t, 1, c.Stats()["x"])

	_, err = NewController(Config{})
	assert.Error(t, err)
}
