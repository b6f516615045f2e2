// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-mem.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed TOML configuration with validated atomic updates
//   - File watching hot reload with listener dispatch
//   - A metrics registry bridged to Prometheus
//   - Debug probe registration, including platform probes
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
