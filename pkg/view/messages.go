package view

import "github.com/kadirpekel/hector-core/pkg/event"

// Messages converts the view's surviving events into the ordered
// message sequence sent to the LLM gateway (step 7 of the projection
// algorithm). Control events that never carry LLM-facing content
// (Pause, Finished, Error) are skipped rather than erroring: they are
// runtime bookkeeping, not conversation turns.
func (v View) Messages() []event.Message {
	out := make([]event.Message, 0, len(v.Events))
	for _, e := range v.Events {
		if m, ok := toMessage(e); ok {
			out = append(out, m)
		}
	}
	return out
}

func toMessage(e event.Event) (event.Message, bool) {
	switch e.Kind {
	case event.KindMessage:
		return e.Message()

	case event.KindSystemPrompt:
		text, ok := e.SystemPromptText()
		if !ok {
			return event.Message{}, false
		}
		return event.NewMessage(event.RoleSystem, []event.ContentPart{event.TextPart(text)}), true

	case event.KindAction:
		action, ok := e.Action()
		if !ok {
			return event.Message{}, false
		}
		var content []event.ContentPart
		if action.Thought != "" {
			content = []event.ContentPart{event.TextPart(action.Thought)}
		}
		call := event.ToolCall{ID: action.ToolCallID, ToolName: action.ToolName, Arguments: action.Arguments}
		opts := []event.MessageOption{event.WithToolCalls(call)}
		if action.ReasoningText != "" {
			opts = append(opts, event.WithReasoningText(action.ReasoningText))
		}
		return event.NewMessage(event.RoleAssistant, content, opts...), true

	case event.KindObservation:
		obs, ok := e.Observation()
		if !ok {
			return event.Message{}, false
		}
		return event.NewMessage(event.RoleTool, []event.ContentPart{event.TextPart(obs.Content)}, event.WithToolCallID(obs.ToolCallID)), true

	case event.KindCondensationSummary:
		summary, ok := e.Summary()
		if !ok {
			return event.Message{}, false
		}
		return event.NewMessage(event.RoleSystem, []event.ContentPart{event.TextPart(summary)}), true

	default:
		return event.Message{}, false
	}
}
