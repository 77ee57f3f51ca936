package llm

import (
	"context"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// Provider is the per-vendor transport: build a wire request from
// messages+tools+options, send it, and parse the wire response back into
// a Response. Gateway wraps Provider with retry, prompt-mock translation,
// prompt-caching, and metrics - none of which a Provider implementation
// needs to know about.
type Provider interface {
	// Name identifies the provider for logging/capability lookup (e.g.
	// "openai", "anthropic").
	Name() string

	// ModelName returns the configured model string.
	ModelName() string

	// SendNative performs one provider call with native function-calling
	// tool schemas attached. Only called when capabilities report
	// SupportsFunctionCalling.
	SendNative(ctx context.Context, messages []event.Message, tools []tool.Definition, opts Options) (*Response, error)

	// SendPlain performs one provider call with no tool schemas attached,
	// used for the prompt-mocked path (tool grammar is injected into the
	// messages by the gateway before calling SendPlain) and for plain
	// text completions (condenser summaries).
	SendPlain(ctx context.Context, messages []event.Message, opts Options) (*Response, error)
}

// CostModel computes a dollar cost from token usage. Providers that
// report cost directly in their response can ignore this and set
// Response.Cost themselves; the gateway only applies CostModel when the
// provider left Response.Cost at zero.
type CostModel struct {
	InputCostPerToken  float64
	OutputCostPerToken float64
}

func (c CostModel) Compute(usage TokenUsage) float64 {
	return float64(usage.Prompt)*c.InputCostPerToken + float64(usage.Completion)*c.OutputCostPerToken
}
