package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// Prompt-mocked function calling: when a model has no native tool-calling
// support, the gateway injects a description of the available tools and
// an output grammar into the system prompt, then parses that grammar back
// out of the assistant's free-form text. This file is the only place that
// knows the grammar; callers of Gateway.Complete never see the
// difference between native and mocked tool calls - both paths return
// the same event.Message shape with ToolCalls populated (spec §4.1:
// "This transformation MUST be invisible to callers").

const mockFunctionCallPattern = `<function=(?P<name>[^>]+)>(?P<body>.*?)</function>`
const mockParameterPattern = `<parameter=(?P<key>[^>]+)>(?P<value>.*?)</parameter>`

var functionCallRe = regexp.MustCompile(`(?s)` + mockFunctionCallPattern)
var parameterRe = regexp.MustCompile(`(?s)` + mockParameterPattern)

// renderToolGrammarPrompt builds the system-prompt addendum describing
// available tools and the exact grammar the model must emit to call one.
func renderToolGrammarPrompt(tools []tool.Definition) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools. To call a tool, ")
	b.WriteString("emit exactly this grammar and nothing else on the line:\n")
	b.WriteString("<function=NAME><parameter=KEY>VALUE</parameter>...</function>\n\n")
	b.WriteString("Available tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		if t.InputSchema != nil {
			if props, ok := t.InputSchema["properties"].(map[string]any); ok {
				for key := range props {
					fmt.Fprintf(&b, "    parameter: %s\n", key)
				}
			}
		}
	}
	return b.String()
}

// injectToolGrammar appends the tool-grammar instructions to the system
// message (the first message if it has RoleSystem, else a synthesized
// one), returning a new message slice - the originals are left untouched
// per the immutability contract on event.Message.
func injectToolGrammar(messages []event.Message, tools []tool.Definition) []event.Message {
	if len(tools) == 0 {
		return messages
	}
	grammar := renderToolGrammarPrompt(tools)

	out := make([]event.Message, len(messages))
	copy(out, messages)

	if len(out) > 0 && out[0].Role() == event.RoleSystem {
		merged := out[0].Text() + "\n\n" + grammar
		out[0] = event.NewMessage(event.RoleSystem, []event.ContentPart{event.TextPart(merged)})
		return out
	}

	sysMsg := event.NewMessage(event.RoleSystem, []event.ContentPart{event.TextPart(grammar)})
	return append([]event.Message{sysMsg}, out...)
}

// parseMockedToolCalls extracts <function=...> blocks from text and
// returns the text with those blocks stripped plus the parsed ToolCalls.
// newCallID supplies each call's ID, so callers (and tests) can get
// deterministic, distinguishable IDs; production calls pass uuid.NewString.
func parseMockedToolCalls(text string, newCallID func() string) (remainingText string, calls []event.ToolCall) {
	matches := functionCallRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]

		nameStart, nameEnd := m[2], m[3]
		bodyStart, bodyEnd := m[4], m[5]
		name := strings.TrimSpace(text[nameStart:nameEnd])
		body := text[bodyStart:bodyEnd]

		args := parseMockedParameters(body)
		calls = append(calls, event.ToolCall{
			ID:        newCallID(),
			ToolName:  name,
			Arguments: args,
		})
	}
	b.WriteString(text[last:])
	return strings.TrimSpace(b.String()), calls
}

// parseMockedParameters renders the <parameter=K>V</parameter> pairs
// inside a function-call body as a JSON object string, the same shape
// native tool-calling arguments arrive in.
func parseMockedParameters(body string) string {
	matches := parameterRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return "{}"
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, m := range matches {
		if i > 0 {
			b.WriteByte(',')
		}
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		fmt.Fprintf(&b, "%s:%s", jsonString(key), jsonString(value))
	}
	b.WriteByte('}')
	return b.String()
}

// jsonString renders s as a minimal JSON string literal, escaping quotes
// and backslashes (mocked parameter values are free-form text captured
// between XML-like tags, not already-JSON).
func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
