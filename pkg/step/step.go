// Package step implements one LLM turn of the agent loop: given an
// already-projected view and the active tool set, ask the gateway for the
// next assistant turn and translate its response into the event(s) the
// conversation runtime appends to the store. Step never executes a tool
// itself; that is the conversation runtime's job.
package step

import (
	"context"
	"fmt"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/tool"
	"github.com/kadirpekel/hector-core/pkg/validate"
	"github.com/kadirpekel/hector-core/pkg/view"
)

// Engine runs one Step at a time. It holds only the schema-validator
// cache, which is safe to share and reuse across every step in a
// conversation's lifetime (the tool set rarely changes mid-conversation).
type Engine struct {
	validator *validate.SchemaValidator
}

// New builds a step Engine with a fresh schema-validator cache.
func New() *Engine {
	return &Engine{validator: validate.NewSchemaValidator()}
}

// Step asks gw for the next assistant turn given v's messages and tools,
// and translates the response into the events the caller should append.
//
// A text-only response yields one MessageEvent and the turn is final (no
// further events). A response with tool calls yields one ActionEvent per
// call; the first action carries the response's ReasoningText, matching
// how a single completion's reasoning is attributed to the turn as a
// whole rather than to any one call. A call whose arguments fail
// validation against the tool's declared schema yields an
// ObservationEvent{IsError:true} instead of an ActionEvent, and the
// executor is never invoked for it.
func (eng *Engine) Step(ctx context.Context, v view.View, gw *llm.Gateway, tools []tool.Definition, opts llm.Options) ([]event.Event, error) {
	resp, err := gw.Complete(ctx, v.Messages(), tools, opts)
	if err != nil {
		return nil, fmt.Errorf("step: gateway complete: %w", err)
	}

	calls := resp.Message.ToolCalls()
	if len(calls) == 0 {
		return []event.Event{event.NewMessageEvent(event.SourceAgent, resp.Message)}, nil
	}

	byName := make(map[string]tool.Definition, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}

	out := make([]event.Event, 0, len(calls))
	for i, call := range calls {
		def, known := byName[call.ToolName]
		if known {
			cacheKey := call.ToolName
			if verr := eng.validator.Validate(cacheKey, def.InputSchema, call.Arguments); verr != nil {
				out = append(out, event.NewObservationEvent(event.ObservationPayload{
					ToolCallID: call.ID,
					ToolName:   call.ToolName,
					Content:    verr.Error(),
					IsError:    true,
				}))
				continue
			}
		}

		action := event.ActionPayload{
			ToolName:   call.ToolName,
			ToolCallID: call.ID,
			Arguments:  call.Arguments,
		}
		if i == 0 {
			action.ReasoningText = resp.Message.ReasoningText()
		}
		out = append(out, event.NewActionEvent(action))
	}
	return out, nil
}
