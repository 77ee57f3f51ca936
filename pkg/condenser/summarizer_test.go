package condenser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// stubProvider is a minimal llm.Provider that echoes back a configured
// response, letting tests exercise GatewaySummarizer without a real
// transport.
type stubProvider struct {
	responses []string
	calls     int
}

func (p *stubProvider) Name() string      { return "stub" }
func (p *stubProvider) ModelName() string { return "stub-model" }

func (p *stubProvider) SendNative(ctx context.Context, messages []event.Message, tools []tool.Definition, opts llm.Options) (*llm.Response, error) {
	return p.SendPlain(ctx, messages, opts)
}

func (p *stubProvider) SendPlain(ctx context.Context, messages []event.Message, opts llm.Options) (*llm.Response, error) {
	text := p.responses[p.calls]
	p.calls++
	return &llm.Response{Message: event.NewMessage(event.RoleAssistant, []event.ContentPart{event.TextPart(text)})}, nil
}

func newTestGateway(responses ...string) *llm.Gateway {
	return llm.New(llm.Config{Provider: &stubProvider{responses: responses}})
}

func msgs(texts ...string) []event.Message {
	out := make([]event.Message, len(texts))
	for i, t := range texts {
		out[i] = event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(t)})
	}
	return out
}

func TestGatewaySummarizerSingleChunk(t *testing.T) {
	gw := newTestGateway("a tidy summary")
	s := NewGatewaySummarizer(gw, 20)

	summary, err := s.Summarize(context.Background(), msgs("hello", "world"))
	require.NoError(t, err)
	assert.Equal(t, "a tidy summary", summary)
}

func TestGatewaySummarizerEmptyMessages(t *testing.T) {
	gw := newTestGateway()
	s := NewGatewaySummarizer(gw, 20)

	summary, err := s.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestGatewaySummarizerChunksAndCombines(t *testing.T) {
	gw := newTestGateway("chunk summary 1", "chunk summary 2", "combined summary")
	s := NewGatewaySummarizer(gw, 2)

	summary, err := s.Summarize(context.Background(), msgs("a", "b", "c", "d"))
	require.NoError(t, err)
	assert.Equal(t, "combined summary", summary)
}

func TestGatewaySummarizerRejectsEmptyResponse(t *testing.T) {
	gw := newTestGateway("   ")
	s := NewGatewaySummarizer(gw, 20)

	_, err := s.Summarize(context.Background(), msgs("hi"))
	assert.Error(t, err)
}
