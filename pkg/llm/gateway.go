package llm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// modifyParamsMu serializes the provider "modify global params" side
// effect around every gateway call across all conversations, matching
// spec §5's requirement that the flag be "serialized around each call to
// prevent cross-conversation interference" - the Go equivalent of the
// teacher's _litellm_modify_params_ctx context manager.
var modifyParamsMu sync.Mutex

// Gateway is the provider-agnostic completion client: a single
// synchronous Complete call that normalizes model quirks, retries with
// backoff, accounts tokens/cost, and transparently converts between
// native and prompt-mocked tool calling (spec §4.1).
type Gateway struct {
	provider  Provider
	caps      Capabilities
	cost      CostModel
	retry     RetryConfig
	disableVision bool
	cachingPrompt bool
	modifyParams  bool

	metricsMu sync.Mutex
	metrics   *Metrics
}

// Config bundles the gateway's construction-time knobs, corresponding to
// the LLM configuration fields named in spec §6.
type Config struct {
	Provider       Provider
	Capabilities   Capabilities // if zero-value, looked up by Provider.ModelName()
	Cost           CostModel
	Retry          RetryConfig
	DisableVision  bool
	CachingPrompt  bool
	ModifyParams   bool
	MaxBudget      *float64
}

// New builds a Gateway from cfg.
func New(cfg Config) *Gateway {
	caps := cfg.Capabilities
	if caps == (Capabilities{}) {
		caps = CapabilitiesFor(cfg.Provider.ModelName())
	}
	retry := cfg.Retry
	if retry.NumRetries == 0 {
		retry = DefaultRetryConfig()
	}
	return &Gateway{
		provider:      cfg.Provider,
		caps:          caps,
		cost:          cfg.Cost,
		retry:         retry,
		disableVision: cfg.DisableVision,
		cachingPrompt: cfg.CachingPrompt,
		modifyParams:  cfg.ModifyParams,
		metrics:       &Metrics{ModelName: cfg.Provider.ModelName(), MaxBudget: cfg.MaxBudget},
	}
}

// Metrics returns the gateway's conversation-scoped, monotonic usage
// accumulator. Callers hold their own conversation lock around reads;
// Gateway itself only ever calls Metrics.Add under metricsMu.
func (g *Gateway) Metrics() *Metrics {
	return g.metrics
}

// Complete asks the model for the next assistant message given messages
// and the available tools. Streaming requests are rejected outright.
func (g *Gateway) Complete(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error) {
	if opts.Stream {
		return nil, ErrUnsupportedOption
	}

	opts = g.normalizeOptions(opts)
	messages = g.applyPromptCaching(messages)
	messages = g.applyVisionPolicy(messages)

	modifyParamsMu.Lock()
	defer modifyParamsMu.Unlock()

	cfg := g.retry
	cfg.Listener = g.retry.Listener

	start := time.Now()
	resp, err := withRetry(ctx, cfg, func(ctx context.Context) (*Response, error) {
		if len(tools) > 0 && g.caps.SupportsFunctionCalling {
			return g.provider.SendNative(ctx, messages, tools, opts)
		}
		return g.completeWithMockedTools(ctx, messages, tools, opts)
	})
	if err != nil {
		return nil, err
	}
	resp.Duration = time.Since(start)

	if resp.Cost == 0 {
		resp.Cost = g.cost.Compute(resp.Usage)
	}

	g.metricsMu.Lock()
	g.metrics.Add(resp.Cost, resp.Usage)
	g.metricsMu.Unlock()

	return resp, nil
}

// completeWithMockedTools implements the prompt-mock path: inject tool
// grammar into the system prompt, call the provider with no native tool
// schemas, then parse the grammar back out of the response text. The
// returned Response's Message carries ToolCalls exactly as the native
// path would, so callers cannot tell the two paths apart (spec §4.1).
func (g *Gateway) completeWithMockedTools(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error) {
	if len(tools) == 0 {
		return g.provider.SendPlain(ctx, messages, opts)
	}

	mocked := injectToolGrammar(messages, tools)
	resp, err := g.provider.SendPlain(ctx, mocked, opts)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}

	remaining, calls := parseMockedToolCalls(resp.Message.Text(), func() string { return uuid.NewString() })
	if len(calls) == 0 {
		return resp, nil
	}

	rebuilt := event.NewMessage(
		resp.Message.Role(),
		[]event.ContentPart{event.TextPart(remaining)},
		event.WithToolCalls(calls...),
		event.WithReasoningText(resp.Message.ReasoningText()),
	)
	resp.Message = rebuilt
	return resp, nil
}

// normalizeOptions strips/adds fields per the model's capability row:
// reasoning-capable models drop temperature/top_p (spec §4.1), and
// reasoning effort / extended thinking are cleared when unsupported.
func (g *Gateway) normalizeOptions(opts Options) Options {
	if g.caps.SupportsReasoningEffort {
		opts.Temperature = nil
		opts.TopP = nil
	}
	if !g.caps.SupportsExtendedThinking {
		opts.ExtendedThinkingBudget = 0
	}
	if !g.caps.SupportsReasoningEffort {
		opts.ReasoningEffort = ""
	}
	return opts
}

// applyPromptCaching marks the last content part of the system message
// and of the most recent user/tool message as a cache breakpoint, per
// spec §4.1, when the model supports prompt caching.
func (g *Gateway) applyPromptCaching(messages []event.Message) []event.Message {
	if !g.cachingPrompt || !g.caps.SupportsPromptCache || len(messages) == 0 {
		return messages
	}

	out := make([]event.Message, len(messages))
	copy(out, messages)

	markLastPart := func(idx int) {
		content := out[idx].Content()
		if len(content) == 0 {
			return
		}
		content[len(content)-1].CacheBreakpoint = true
		out[idx] = event.NewMessage(out[idx].Role(), content,
			event.WithToolCallID(out[idx].ToolCallID()),
			event.WithToolCalls(out[idx].ToolCalls()...),
			event.WithReasoningText(out[idx].ReasoningText()),
			event.WithFlags(out[idx].Flags()),
		)
	}

	if out[0].Role() == event.RoleSystem {
		markLastPart(0)
	}
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role() == event.RoleUser || out[i].Role() == event.RoleTool {
			markLastPart(i)
			break
		}
	}
	return out
}

// applyVisionPolicy strips image content parts when vision is disabled or
// the model doesn't support it, so a disable_vision=true config or a
// text-only model never sees ImagePart content it can't use.
func (g *Gateway) applyVisionPolicy(messages []event.Message) []event.Message {
	if !g.disableVision && g.caps.SupportsVision {
		return messages
	}

	out := make([]event.Message, len(messages))
	for i, m := range messages {
		content := m.Content()
		filtered := content[:0]
		for _, p := range content {
			if p.Kind == event.PartImage {
				continue
			}
			filtered = append(filtered, p)
		}
		out[i] = event.NewMessage(m.Role(), filtered,
			event.WithToolCallID(m.ToolCallID()),
			event.WithToolCalls(m.ToolCalls()...),
			event.WithReasoningText(m.ReasoningText()),
			event.WithFlags(m.Flags()),
		)
	}
	return out
}
