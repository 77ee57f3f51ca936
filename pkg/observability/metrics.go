package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics across the four categories
// spec.md's runtime actually produces. A nil *Metrics is a valid no-op
// receiver on every Record*/Inc*/Dec* method, so callers don't need a
// "metrics enabled" check at every call site.
type Metrics struct {
	registry *prometheus.Registry

	conversationRuns     *prometheus.CounterVec
	conversationDuration *prometheus.HistogramVec
	conversationErrors   *prometheus.CounterVec
	conversationsActive  prometheus.Gauge

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics instance, or returns (nil, nil) when cfg is
// disabled - every Record method on a nil *Metrics is a no-op.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.conversationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "conversation", Name: "runs_total",
		Help: "Total number of conversation Run invocations.",
	}, []string{"agent"})
	m.conversationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "conversation", Name: "run_duration_seconds",
		Help: "Duration of a single conversation Run call.", Buckets: prometheus.DefBuckets,
	}, []string{"agent"})
	m.conversationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "conversation", Name: "errors_total",
		Help: "Total number of terminal conversation errors, by error kind.",
	}, []string{"agent", "kind"})
	m.conversationsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace, Subsystem: "conversation", Name: "active",
		Help: "Number of conversations currently in status=running.",
	})

	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of LLM gateway Complete calls.",
	}, []string{"model", "service_id"})
	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help: "Duration of a gateway Complete call.", Buckets: prometheus.DefBuckets,
	}, []string{"model", "service_id"})
	m.llmTokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "llm", Name: "input_tokens_total",
		Help: "Total input tokens consumed.",
	}, []string{"model", "service_id"})
	m.llmTokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "llm", Name: "output_tokens_total",
		Help: "Total output tokens produced.",
	}, []string{"model", "service_id"})
	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total LLM gateway errors, by error kind.",
	}, []string{"model", "service_id", "kind"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool executor invocations.",
	}, []string{"tool"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Duration of a tool Execute call.", Buckets: prometheus.DefBuckets,
	}, []string{"tool"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total tool observations with IsError=true.",
	}, []string{"tool"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total HTTP requests served, by method/route/status class.",
	}, []string{"method", "route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	m.registry.MustRegister(
		m.conversationRuns, m.conversationDuration, m.conversationErrors, m.conversationsActive,
		m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors,
		m.toolCalls, m.toolCallDuration, m.toolErrors,
		m.httpRequests, m.httpDuration,
	)
	return m, nil
}

func (m *Metrics) RecordConversationRun(agent string, duration time.Duration) {
	if m == nil {
		return
	}
	m.conversationRuns.WithLabelValues(agent).Inc()
	m.conversationDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

func (m *Metrics) RecordConversationError(agent, kind string) {
	if m == nil {
		return
	}
	m.conversationErrors.WithLabelValues(agent, kind).Inc()
}

func (m *Metrics) IncConversationsActive() {
	if m == nil {
		return
	}
	m.conversationsActive.Inc()
}

func (m *Metrics) DecConversationsActive() {
	if m == nil {
		return
	}
	m.conversationsActive.Dec()
}

func (m *Metrics) RecordLLMCall(model, serviceID string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, serviceID).Inc()
	m.llmCallDuration.WithLabelValues(model, serviceID).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMTokens(model, serviceID string, input, output int) {
	if m == nil {
		return
	}
	m.llmTokensInput.WithLabelValues(model, serviceID).Add(float64(input))
	m.llmTokensOutput.WithLabelValues(model, serviceID).Add(float64(output))
}

func (m *Metrics) RecordLLMError(model, serviceID, kind string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, serviceID, kind).Inc()
}

func (m *Metrics) RecordToolCall(tool string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (m *Metrics) RecordToolError(tool string) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(tool).Inc()
}

// RecordHTTPRequest records one completed HTTP request against its
// route pattern (chi.RouteContext, not the raw path - avoids
// high-cardinality metrics from path parameters like conversation ids).
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusClassLabel(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClassLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// Handler serves the Prometheus exposition format, or 503 if metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
