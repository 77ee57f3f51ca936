package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// OpenAIProvider calls the OpenAI-compatible chat-completions endpoint.
// Request/response shapes mirror the struct fields used by teacher's
// pkg/llms/openai.go (trimmed to the chat-completions surface rather than
// the newer Responses API, since the gateway layer above already
// supplies retry, caching, and mock-tool-calling; this file owns only
// wire translation).
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider builds a provider bound to model, calling baseURL
// (default "https://api.openai.com/v1" when empty) with apiKey.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIProvider) Name() string      { return "openai" }
func (p *OpenAIProvider) ModelName() string { return p.model }

type openAIChatMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIToolCallFunc `json:"function"`
}

type openAIToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Tools       []openAITool        `json:"tools,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Seed        *int                `json:"seed,omitempty"`
}

type openAIChatChoice struct {
	Message      openAIChatMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openAIChatResponse struct {
	Choices []openAIChatChoice `json:"choices"`
	Usage   openAIUsage        `json:"usage"`
	Error   *openAIError       `json:"error,omitempty"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func toOpenAIMessages(messages []event.Message) []openAIChatMessage {
	out := make([]openAIChatMessage, 0, len(messages))
	for _, m := range messages {
		wire := openAIChatMessage{Role: string(m.Role()), Content: m.Text(), ToolCallID: m.ToolCallID()}
		for _, tc := range m.ToolCalls() {
			wire.ToolCalls = append(wire.ToolCalls, openAIToolCall{
				ID: tc.ID, Type: "function",
				Function: openAIToolCallFunc{Name: tc.ToolName, Arguments: tc.Arguments},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toOpenAITools(defs []tool.Definition) []openAITool {
	out := make([]openAITool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openAITool{
			Type: "function",
			Function: openAIToolFunction{
				Name: d.Name, Description: d.Description, Parameters: d.InputSchema,
			},
		})
	}
	return out
}

func (p *OpenAIProvider) send(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error) {
	req := openAIChatRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Tools:       toOpenAITools(tools),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Seed:        opts.Seed,
	}
	if opts.MaxOutputTokens > 0 {
		mt := opts.MaxOutputTokens
		req.MaxTokens = &mt
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Detail: err.Error(), Recoverable: true}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ProviderError{Detail: err.Error(), Recoverable: true}
	}

	if httpResp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuth
	}
	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, &ProviderError{StatusCode: httpResp.StatusCode, Detail: string(raw), Recoverable: true}
	}
	if httpResp.StatusCode >= 400 {
		if IsContextWindowExceeded(fmt.Errorf("%s", raw)) {
			return nil, &ContextWindowExceededError{Detail: string(raw)}
		}
		return nil, &ProviderError{StatusCode: httpResp.StatusCode, Detail: string(raw), Recoverable: false}
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrNoResponse
	}

	choice := parsed.Choices[0]
	var calls []event.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, event.ToolCall{ID: tc.ID, ToolName: tc.Function.Name, Arguments: tc.Function.Arguments})
	}

	opts2 := []event.MessageOption{}
	if len(calls) > 0 {
		opts2 = append(opts2, event.WithToolCalls(calls...))
	}
	msg := event.NewMessage(event.RoleAssistant, []event.ContentPart{event.TextPart(choice.Message.Content)}, opts2...)

	return &Response{
		Message: msg,
		Usage:   TokenUsage{Prompt: parsed.Usage.PromptTokens, Completion: parsed.Usage.CompletionTokens},
		ModelID: p.model,
		RawJSON: raw,
	}, nil
}

// SendNative attaches tool schemas to the request.
func (p *OpenAIProvider) SendNative(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error) {
	return p.send(ctx, messages, tools, opts)
}

// SendPlain sends no tool schemas - used both for plain completions and
// for the prompt-mocked tool-calling path (the gateway has already
// injected grammar into messages by this point).
func (p *OpenAIProvider) SendPlain(ctx context.Context, messages []event.Message, opts Options) (*Response, error) {
	return p.send(ctx, messages, nil, opts)
}
