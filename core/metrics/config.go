package metrics

import "github.com/kilianp07/dronecharge/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusPort exposes /metrics when non empty, e.g. ":2112".
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port"`
}
