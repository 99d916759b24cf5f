package metrics

import "github.com/kilianp07/modai/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool                   `json:"prometheus_enabled"`
	PrometheusAddr    string                 `json:"prometheus_addr"`
	Sinks             []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusEnabled && c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9100"
	}
}
