package llm

import (
	"context"
	"sync"
	"time"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// fakeProvider is an in-memory Provider used by every test in this
// package, the way teacher's pkg/llms/*_test.go and pkg/testutils build
// fakes instead of hitting a real network endpoint.
type fakeProvider struct {
	mu sync.Mutex

	name  string
	model string

	// responses is consumed in order by each SendNative/SendPlain call;
	// errs[i] (if non-nil) is returned instead of responses[i].
	responses []*Response
	errs      []error
	calls     int

	nativeCalls []callRecord
	plainCalls  []callRecord
}

type callRecord struct {
	messages []event.Message
	tools    []tool.Definition
	opts     Options
}

func newFakeProvider(model string) *fakeProvider {
	return &fakeProvider{name: "fake", model: model}
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) ModelName() string { return f.model }

func (f *fakeProvider) enqueue(resp *Response, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	f.errs = append(f.errs, err)
}

func (f *fakeProvider) next() (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.responses) {
		return nil, ErrNoResponse
	}
	resp, err := f.responses[f.calls], f.errs[f.calls]
	f.calls++
	return resp, err
}

func (f *fakeProvider) SendNative(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error) {
	f.mu.Lock()
	f.nativeCalls = append(f.nativeCalls, callRecord{messages, tools, opts})
	f.mu.Unlock()
	return f.next()
}

func (f *fakeProvider) SendPlain(ctx context.Context, messages []event.Message, opts Options) (*Response, error) {
	f.mu.Lock()
	f.plainCalls = append(f.plainCalls, callRecord{messages: messages, opts: opts})
	f.mu.Unlock()
	return f.next()
}

func assistantTextResponse(text string) *Response {
	return &Response{
		Message: event.NewMessage(event.RoleAssistant, []event.ContentPart{event.TextPart(text)}),
		Usage:   TokenUsage{Prompt: 10, Completion: 5},
	}
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		NumRetries: 3,
		Multiplier: 0.001,
		MinWait:    1 * time.Millisecond,
		MaxWait:    5 * time.Millisecond,
	}
}
