// control/control.go
// Author: momentics <momentics@gmail.com>
//
// Controller bundles configuration, metrics and debug probes.

package control

import "github.com/momentics/hioload-mem/api"

// Controller is the process-wide control plane.
type Controller struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Debug   *DebugProbes
}

// NewController creates a controller holding cfg with platform probes
// registered.
func NewController(cfg Config) (*Controller, error) {
	c := &Controller{
		Config:  NewConfigStore(),
		Metrics: NewMetricsRegistry(),
		Debug:   NewDebugProbes(),
	}
	if err := c.Config.Set(cfg); err != nil {
		return nil, err
	}
	RegisterPlatformProbes(c.Debug)
	return c, nil
}

// Stats returns the current metrics snapshot.
func (c *Controller) Stats() map[string]any { return c.Metrics.GetSnapshot() }

// OnReload registers fn to run after every configuration change.
func (c *Controller) OnReload(fn func()) {
	c.Config.OnReload(func(_, _ Config) { fn() })
}

// RegisterDebugProbe forwards to the probe registry.
func (c *Controller) RegisterDebugProbe(name string, fn func() any) {
	c.Debug.RegisterProbe(name, fn)
}

var _ api.Control = (*Controller)(nil)
