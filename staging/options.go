// File: staging/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package staging

import (
	"github.com/go-logr/logr"

	"github.com/momentics/hioload-mem/control"
	"github.com/momentics/hioload-mem/core/concurrency"
	"github.com/momentics/hioload-mem/pool"
)

// Config shapes a Context. It is the [staging] section of control.Config.
type Config = control.StagingConfig

// Option configures a Context.
type Option func(*options)

type options struct {
	log     logr.Logger
	backoff concurrency.Backoff
}

// WithLogger routes frame lifecycle diagnostics to l.
func WithLogger(l logr.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithBackoff sets the spin policy of the scratch pool.
func WithBackoff(b concurrency.Backoff) Option {
	return func(o *options) { o.backoff = b }
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

func (o options) pool() []pool.Option {
	return []pool.Option{pool.WithLogger(o.log), pool.WithBackoff(o.backoff)}
}
