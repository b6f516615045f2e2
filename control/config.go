// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration for every primitive, loaded from TOML, plus a
// thread-safe store with atomic snapshot and reload propagation.

package control

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/momentics/hioload-mem/api"
	"github.com/momentics/hioload-mem/core/concurrency"
	"github.com/momentics/hioload-mem/pool"
)

// ArenaConfig sizes arenas built outside a staging context.
type ArenaConfig struct {
	InitialRecords int    `toml:"initial_records"`
	MaxRecords     int    `toml:"max_records"`
	Allocator      string `toml:"allocator"`
	HeapLimitBytes int64  `toml:"heap_limit_bytes"`
}

// PoolConfig sizes an ArrayPool.
type PoolConfig struct {
	BufferLength int `toml:"buffer_length"`
	Buffers      int `toml:"buffers"`
}

// RingConfig sizes a CircularBuffer.
type RingConfig struct {
	Capacity int `toml:"capacity"`
}

// SpinConfig selects the spin lock wait policy: auto, spin, yield or park.
type SpinConfig struct {
	Backoff string `toml:"backoff"`
}

// StagingConfig shapes a per-frame staging context.
type StagingConfig struct {
	FramesInFlight int    `toml:"frames_in_flight"`
	InitialRecords int    `toml:"initial_records"`
	MaxRecords     int    `toml:"max_records"`
	Allocator      string `toml:"allocator"`
	ScratchLength  int    `toml:"scratch_length"`
	ScratchBuffers int    `toml:"scratch_buffers"`
}

// Config is the full hioload-mem configuration.
type Config struct {
	Arena   ArenaConfig   `toml:"arena"`
	Pool    PoolConfig    `toml:"pool"`
	Ring    RingConfig    `toml:"ring"`
	Spin    SpinConfig    `toml:"spin"`
	Staging StagingConfig `toml:"staging"`
}

// DefaultConfig returns settings suitable for a desktop renderer.
func DefaultConfig() Config {
	return Config{
		Arena: ArenaConfig{
			InitialRecords: 1024,
			Allocator:      pool.AllocatorHeap,
		},
		Pool: PoolConfig{
			BufferLength: 4096,
			Buffers:      32,
		},
		Ring: RingConfig{Capacity: 1024},
		Spin: SpinConfig{Backoff: "auto"},
		Staging: StagingConfig{
			FramesInFlight: 3,
			InitialRecords: 4096,
			Allocator:      pool.AllocatorHeap,
			ScratchLength:  16 << 10,
			ScratchBuffers: 8,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Unknown keys are an
// error so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, api.Wrap(api.ErrCodeInvalidArgument, err, "config: decode failed").WithContext("path", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, api.Errorf(api.ErrCodeInvalidArgument, "config: unknown keys %s", strings.Join(keys, ", ")).
			WithContext("path", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and reports the first violation.
func (c Config) Validate() error {
	switch {
	case c.Arena.InitialRecords < 0:
		return invalid("arena.initial_records", c.Arena.InitialRecords)
	case c.Arena.MaxRecords < 0:
		return invalid("arena.max_records", c.Arena.MaxRecords)
	case c.Arena.MaxRecords > 0 && c.Arena.InitialRecords > c.Arena.MaxRecords:
		return invalid("arena.initial_records", c.Arena.InitialRecords)
	case c.Arena.HeapLimitBytes < 0:
		return invalid("arena.heap_limit_bytes", c.Arena.HeapLimitBytes)
	case !knownAllocator(c.Arena.Allocator):
		return invalid("arena.allocator", c.Arena.Allocator)
	case c.Pool.BufferLength <= 0:
		return invalid("pool.buffer_length", c.Pool.BufferLength)
	case c.Pool.Buffers <= 0:
		return invalid("pool.buffers", c.Pool.Buffers)
	case c.Ring.Capacity < 1:
		return invalid("ring.capacity", c.Ring.Capacity)
	case c.Staging.FramesInFlight < 1:
		return invalid("staging.frames_in_flight", c.Staging.FramesInFlight)
	case c.Staging.InitialRecords < 0:
		return invalid("staging.initial_records", c.Staging.InitialRecords)
	case c.Staging.MaxRecords < 0:
		return invalid("staging.max_records", c.Staging.MaxRecords)
	case !knownAllocator(c.Staging.Allocator):
		return invalid("staging.allocator", c.Staging.Allocator)
	case c.Staging.ScratchLength <= 0:
		return invalid("staging.scratch_length", c.Staging.ScratchLength)
	case c.Staging.ScratchBuffers <= 0:
		return invalid("staging.scratch_buffers", c.Staging.ScratchBuffers)
	}
	if _, err := concurrency.ParseBackoff(c.Spin.Backoff); err != nil {
		return err
	}
	return nil
}

// Backoff resolves the configured spin policy.
func (c Config) Backoff() concurrency.Backoff {
	b, err := concurrency.ParseBackoff(c.Spin.Backoff)
	if err != nil {
		return concurrency.DefaultBackoff()
	}
	return b
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func knownAllocator(kind string) bool {
	switch strings.ToLower(kind) {
	case "", pool.AllocatorHeap, pool.AllocatorMapped:
		return true
	}
	return false
}

func invalid(key string, value any) error {
	return api.Errorf(api.ErrCodeInvalidArgument, "config: invalid %s", key).WithContext("value", value)
}

// ConfigStore holds the live Config with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(old, cur Config)
}

// NewConfigStore initializes a store holding DefaultConfig.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: DefaultConfig()}
}

// Snapshot returns a copy of the current configuration.
func (cs *ConfigStore) Snapshot() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// Set validates cfg, swaps it in and notifies listeners in registration
// order. An invalid cfg leaves the store untouched.
func (cs *ConfigStore) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cs.mu.Lock()
	old := cs.config
	cs.config = cfg
	listeners := append([]func(old, cur Config){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
	return nil
}

// OnReload registers a listener hook called after every successful Set.
func (cs *ConfigStore) OnReload(fn func(old, cur Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
