// File: pool/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-mem/core/concurrency"
)

// Option configures arenas, array pools and circular buffers. Each
// constructor reads only the settings that apply to it.
type Option func(*options)

type options struct {
	log        logr.Logger
	backoff    concurrency.Backoff
	maxRecords int
}

func buildOptions(opts []Option) options {
	o := options{
		log:     logr.Discard(),
		backoff: concurrency.DefaultBackoff(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger routes diagnostics (growth, discards) to l.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBackoff sets the spin lock wait policy of pools and rings.
func WithBackoff(b concurrency.Backoff) Option {
	return func(o *options) { o.backoff = b }
}

// WithMaxRecords caps an arena's capacity; growth beyond it fails with
// ErrCodeOutOfMemory. n <= 0 means no cap.
func WithMaxRecords(n int) Option {
	return func(o *options) { o.maxRecords = n }
}
