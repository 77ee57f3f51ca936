package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// wireContentPart is the canonical JSON shape of a ContentPart.
type wireContentPart struct {
	Kind            PartKind `json:"kind"`
	Text            string   `json:"text,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	CacheBreakpoint bool     `json:"cache_breakpoint,omitempty"`
}

type wireMessage struct {
	Role          Role              `json:"role"`
	Content       []wireContentPart `json:"content"`
	ToolCallID    string            `json:"tool_call_id,omitempty"`
	ToolCalls     []ToolCall        `json:"tool_calls,omitempty"`
	ReasoningText string            `json:"reasoning_text,omitempty"`
	Flags         Flags             `json:"flags"`
}

func toWireMessage(m Message) wireMessage {
	parts := make([]wireContentPart, 0, len(m.content))
	for _, p := range m.content {
		parts = append(parts, wireContentPart{
			Kind: p.Kind, Text: p.Text, ImageURLs: p.ImageURLs, CacheBreakpoint: p.CacheBreakpoint,
		})
	}
	return wireMessage{
		Role: m.role, Content: parts, ToolCallID: m.toolCallID,
		ToolCalls: m.toolCalls, ReasoningText: m.reasoningText, Flags: m.flags,
	}
}

func (w wireMessage) toMessage() Message {
	parts := make([]ContentPart, 0, len(w.Content))
	for _, p := range w.Content {
		parts = append(parts, ContentPart{Kind: p.Kind, Text: p.Text, ImageURLs: p.ImageURLs, CacheBreakpoint: p.CacheBreakpoint})
	}
	return Message{
		role: w.Role, content: parts, toolCallID: w.ToolCallID,
		toolCalls: w.ToolCalls, reasoningText: w.ReasoningText, flags: w.Flags,
	}
}

// wireEvent is the canonical, totally-ordered-field JSON representation of
// an Event used for append-only persistence and for the round-trip
// property in spec §8 ("serialize -> deserialize -> serialize equals the
// first serialization").
type wireEvent struct {
	ID        uuid.UUID    `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Source    Source       `json:"source"`
	Kind      Kind         `json:"kind"`

	Message      *wireMessage         `json:"message,omitempty"`
	Action       *ActionPayload       `json:"action,omitempty"`
	Observation  *ObservationPayload  `json:"observation,omitempty"`
	SystemPrompt string               `json:"system_prompt,omitempty"`
	Condensation *CondensationPayload `json:"condensation,omitempty"`
	Error        *ErrorPayload        `json:"error,omitempty"`
	Summary      string               `json:"summary,omitempty"`
}

// MarshalJSON renders a canonical wire form: every Event, regardless of how
// it was constructed, serializes to the same byte sequence for the same
// logical content.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{ID: e.ID, Timestamp: e.Timestamp, Source: e.Source, Kind: e.Kind}
	if e.message != nil {
		wm := toWireMessage(*e.message)
		w.Message = &wm
	}
	w.Action = e.action
	w.Observation = e.observation
	if e.Kind == KindSystemPrompt {
		w.SystemPrompt = e.systemPrompt
	}
	w.Condensation = e.condensation
	w.Error = e.errorPayload
	if e.Kind == KindCondensationSummary {
		w.Summary = e.summary
	}
	return json.Marshal(w)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	e.ID = w.ID
	e.Timestamp = w.Timestamp
	e.Source = w.Source
	e.Kind = w.Kind
	if w.Message != nil {
		m := w.Message.toMessage()
		e.message = &m
	}
	e.action = w.Action
	e.observation = w.Observation
	e.systemPrompt = w.SystemPrompt
	e.condensation = w.Condensation
	e.errorPayload = w.Error
	e.summary = w.Summary
	return nil
}
