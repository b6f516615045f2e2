// control/prometheus.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus bridge for MetricsRegistry.

package control

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports every numeric MetricsRegistry entry as a
// gauge. Registry keys are dynamic, so the collector is unchecked.
type PrometheusCollector struct {
	reg       *MetricsRegistry
	namespace string
}

// NewPrometheusCollector wraps reg. Metric names are prefixed with namespace.
func NewPrometheusCollector(reg *MetricsRegistry, namespace string) *PrometheusCollector {
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for key, v := range c.reg.GetSnapshot() {
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		desc := prometheus.NewDesc(
			prometheus.BuildFQName(c.namespace, "", metricName(key)),
			"Registry value "+key+".",
			nil, nil,
		)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, f)
	}
}

// metricName maps a dotted registry key onto the Prometheus name charset.
func metricName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, key)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)
