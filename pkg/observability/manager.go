package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// shutdownable is implemented by sdktrace.TracerProvider; the no-op
// provider InitTracer returns when tracing is disabled does not
// implement it, so Shutdown below degrades to a no-op in that case.
type shutdownable interface {
	Shutdown(ctx context.Context) error
}

// Manager owns the process-wide tracer provider and metrics registry and
// ties their lifecycles together, so cmd/hectord has one thing to
// initialize at startup and shut down on exit.
type Manager struct {
	config *Config

	tracerProvider trace.TracerProvider
	metrics        *Metrics
}

// NewManager initializes tracing and metrics from cfg. A nil cfg returns
// an empty, fully-functional Manager (every accessor is nil-safe).
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		return &Manager{}, nil
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("observability: invalid config: %w", err)
	}

	m := &Manager{config: cfg}

	tp, err := InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("observability: init tracer: %w", err)
	}
	m.tracerProvider = tp
	if cfg.Tracing.Enabled {
		slog.Info("observability: tracing initialized",
			"endpoint", cfg.Tracing.Endpoint,
			"sampling_rate", cfg.Tracing.SamplingRate,
		)
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		if sd, ok := m.tracerProvider.(shutdownable); ok {
			_ = sd.Shutdown(ctx)
		}
		return nil, fmt.Errorf("observability: init metrics: %w", err)
	}
	m.metrics = metrics
	if cfg.Metrics.Enabled {
		slog.Info("observability: metrics initialized",
			"endpoint", cfg.Metrics.Endpoint,
			"namespace", cfg.Metrics.Namespace,
		)
	}

	return m, nil
}

// Tracer returns a named tracer from the manager's provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	if m == nil || m.tracerProvider == nil {
		return GetTracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Metrics returns the metrics instance, or nil if metrics are disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsHandler returns an HTTP handler for the metrics endpoint.
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return m.metrics.Handler()
}

// MetricsEndpoint returns the configured metrics endpoint path.
func (m *Manager) MetricsEndpoint() string {
	if m == nil || m.config == nil {
		return "/metrics"
	}
	return m.config.Metrics.Endpoint
}

// TracingEnabled reports whether tracing is active.
func (m *Manager) TracingEnabled() bool {
	return m != nil && m.config != nil && m.config.Tracing.Enabled
}

// MetricsEnabled reports whether metrics are active.
func (m *Manager) MetricsEnabled() bool {
	return m != nil && m.metrics != nil
}

// Shutdown flushes and shuts down the tracer provider. Metrics need no
// explicit shutdown in Prometheus's client model.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.tracerProvider == nil {
		return nil
	}
	sd, ok := m.tracerProvider.(shutdownable)
	if !ok {
		return nil
	}
	if err := sd.Shutdown(ctx); err != nil {
		return fmt.Errorf("observability: tracer shutdown: %w", err)
	}
	slog.Info("observability: tracing shutdown complete")
	return nil
}
