package llm

import "strings"

// Capabilities is the per-model feature-flag row the gateway consults to
// decide native-vs-mocked function calling, whether to strip
// temperature/top_p, whether to attach a thinking block, whether to mark
// prompt-cache breakpoints, and whether to accept image content parts.
// Grounded on the provider-specific branching scattered through the
// teacher's pkg/llms/{openai,anthropic,gemini,ollama}.go files,
// consolidated here into one table instead of one switch per provider.
type Capabilities struct {
	SupportsFunctionCalling bool
	SupportsReasoningEffort bool
	SupportsExtendedThinking bool
	SupportsPromptCache     bool
	SupportsVision          bool
}

type capabilityRule struct {
	prefix string
	caps   Capabilities
}

// capabilityTable maps model-name prefixes to capabilities; CapabilitiesFor
// returns the entry with the longest matching prefix, whatever its position
// in the table, falling back to a conservative default.
var capabilityTable = []capabilityRule{
	{"claude-opus-4", Capabilities{true, true, true, true, true}},
	{"claude-sonnet-4", Capabilities{true, true, true, true, true}},
	{"claude-3-7", Capabilities{true, true, true, true, true}},
	{"claude-3-5", Capabilities{true, false, false, true, true}},
	{"claude-3", Capabilities{true, false, false, true, true}},
	{"o1", Capabilities{true, true, false, false, false}},
	{"o3", Capabilities{true, true, false, false, false}},
	{"gpt-4o", Capabilities{true, false, false, false, true}},
	{"gpt-4", Capabilities{true, false, false, false, false}},
	{"gpt-3.5", Capabilities{true, false, false, false, false}},
	{"gemini-2", Capabilities{true, true, true, false, true}},
	{"gemini-1.5", Capabilities{true, false, false, false, true}},
	{"llama3", Capabilities{false, false, false, false, false}},
	{"mistral", Capabilities{false, false, false, false, false}},
}

// defaultCapabilities is used for unrecognized models: conservative, no
// native function calling (forces prompt-mocked mode, which works
// everywhere), no extras.
var defaultCapabilities = Capabilities{}

// CapabilitiesFor looks up the capability row for modelName by longest
// matching known prefix.
func CapabilitiesFor(modelName string) Capabilities {
	lower := strings.ToLower(modelName)
	best := -1
	var result Capabilities
	found := false
	for _, rule := range capabilityTable {
		if strings.HasPrefix(lower, rule.prefix) && len(rule.prefix) > best {
			best = len(rule.prefix)
			result = rule.caps
			found = true
		}
	}
	if !found {
		return defaultCapabilities
	}
	return result
}
