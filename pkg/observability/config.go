// Package observability wires Prometheus metrics and OpenTelemetry tracing
// into the agent-server HTTP surface, trimmed from teacher's much larger
// observability stack (RAG/memory/session metrics dropped - this module
// has no RAG or cross-session memory component) down to the categories
// spec.md's runtime actually produces: HTTP requests, conversation runs,
// LLM calls, and tool calls.
package observability

import "errors"

var errInvalidSamplingRate = errors.New("observability: sampling_rate must be between 0 and 1")

// Config groups tracing and metrics configuration under one server.observability block.
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"` // OTLP gRPC collector, e.g. "localhost:4317"
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`
	ServiceName  string  `yaml:"service_name,omitempty"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"` // path metrics are exposed on, default "/metrics"
	Namespace string `yaml:"namespace,omitempty"`
}

// SetDefaults fills in the tracing sampling rate, service name, and the
// metrics namespace/endpoint.
func (c *Config) SetDefaults() {
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "hector-core"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "hector_core"
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "/metrics"
	}
}

// Validate checks the sampling rate is a valid probability.
func (c *Config) Validate() error {
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errInvalidSamplingRate
	}
	return nil
}
