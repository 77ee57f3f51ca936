package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
	assert.Equal(t, "hector-core", cfg.Tracing.ServiceName)
	assert.Equal(t, "hector_core", cfg.Metrics.Namespace)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
}

func TestConfigValidateRejectsInvalidSamplingRate(t *testing.T) {
	cfg := &Config{Tracing: TracingConfig{SamplingRate: 1.5}}
	assert.ErrorIs(t, cfg.Validate(), errInvalidSamplingRate)

	cfg = &Config{Tracing: TracingConfig{SamplingRate: -0.1}}
	assert.ErrorIs(t, cfg.Validate(), errInvalidSamplingRate)
}

func TestNewMetricsDisabledReturnsNil(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNilMetricsRecordMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordConversationRun("agent", time.Millisecond)
		m.RecordConversationError("agent", "timeout")
		m.IncConversationsActive()
		m.DecConversationsActive()
		m.RecordLLMCall("gpt-4", "svc", time.Millisecond)
		m.RecordLLMTokens("gpt-4", "svc", 10, 20)
		m.RecordLLMError("gpt-4", "svc", "rate_limit")
		m.RecordToolCall("search", time.Millisecond)
		m.RecordToolError("search")
		m.RecordHTTPRequest("GET", "/conversations", 200, time.Millisecond)
	})
}

func TestNilMetricsHandlerReturnsServiceUnavailable(t *testing.T) {
	var m *Metrics
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRecordAndExpose(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	require.NoError(t, err)
	require.NotNil(t, m)

	m.RecordConversationRun("agent-1", 50*time.Millisecond)
	m.RecordLLMCall("gpt-4", "svc-1", 100*time.Millisecond)
	m.RecordLLMTokens("gpt-4", "svc-1", 100, 50)
	m.RecordToolCall("search", 10*time.Millisecond)
	m.RecordHTTPRequest(http.MethodPost, "/conversations", 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "test_conversation_runs_total")
	assert.Contains(t, body, "test_llm_calls_total")
	assert.Contains(t, body, "test_tool_calls_total")
	assert.Contains(t, body, "test_http_requests_total")
}

func TestStatusClassLabel(t *testing.T) {
	assert.Equal(t, "2xx", statusClassLabel(204))
	assert.Equal(t, "4xx", statusClassLabel(404))
	assert.Equal(t, "5xx", statusClassLabel(500))
	assert.Equal(t, "unknown", statusClassLabel(0))
}

func TestInitTracerDisabledReturnsNoop(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	assert.NotNil(t, span)
	span.End()
}

func TestNewManagerNilConfig(t *testing.T) {
	m, err := NewManager(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.False(t, m.TracingEnabled())
	assert.False(t, m.MetricsEnabled())
	assert.Nil(t, m.Metrics())
	assert.Equal(t, "/metrics", m.MetricsEndpoint())
	assert.NoError(t, m.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	m.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewManagerMetricsOnlyTracingDisabled(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	m, err := NewManager(context.Background(), cfg)
	require.NoError(t, err)

	assert.False(t, m.TracingEnabled())
	assert.True(t, m.MetricsEnabled())
	assert.NotNil(t, m.Tracer("test"))
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	cfg := &Config{Tracing: TracingConfig{Enabled: false, SamplingRate: 2.0}}
	_, err := NewManager(context.Background(), cfg)
	assert.Error(t, err)
}
