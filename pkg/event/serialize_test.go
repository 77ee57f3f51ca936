package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	cases := []Event{
		NewMessageEvent(SourceUser, NewMessage(RoleUser, []ContentPart{TextPart("hi")})),
		NewActionEvent(ActionPayload{ToolName: "echo", ToolCallID: "abc", Arguments: `{"text":"hi"}`}),
		NewObservationEvent(ObservationPayload{ToolCallID: "abc", ToolName: "echo", Content: "hi"}),
		NewSystemPromptEvent("you are an agent"),
		NewCondensationRequestEvent(),
		NewCondensationEvent(CondensationPayload{ForgottenEventIDs: []string{"1", "2"}, Summary: "s", HasSummary: true, SummaryOffset: 1}),
		NewErrorEvent(ErrStuck, "repeated action"),
		NewCondensationSummaryEvent("summarized history"),
		NewPauseEvent(),
		NewFinishedEvent(),
	}

	for _, original := range cases {
		b1, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Event
		require.NoError(t, json.Unmarshal(b1, &decoded))

		b2, err := json.Marshal(decoded)
		require.NoError(t, err)

		assert.JSONEq(t, string(b1), string(b2))
		assert.Equal(t, original.Kind, decoded.Kind)
		assert.Equal(t, original.ID, decoded.ID)
	}
}

func TestMessageImmutableContentCopy(t *testing.T) {
	parts := []ContentPart{TextPart("a")}
	m := NewMessage(RoleUser, parts)
	parts[0] = TextPart("mutated")
	assert.Equal(t, "a", m.Text())
}

func TestActionObservationShareToolCallID(t *testing.T) {
	a := NewActionEvent(ActionPayload{ToolCallID: "x"})
	o := NewObservationEvent(ObservationPayload{ToolCallID: "x"})
	assert.Equal(t, "x", a.ToolCallIDOrEmpty())
	assert.Equal(t, "x", o.ToolCallIDOrEmpty())
}
