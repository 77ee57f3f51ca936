package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/hector-core/pkg/event"
)

func assistantMessage(text string) event.Event {
	return event.NewMessageEvent(event.SourceAgent, event.NewMessage(event.RoleAssistant, []event.ContentPart{event.TextPart(text)}))
}

func actionObservation(id, toolName, args, content string) []event.Event {
	return []event.Event{
		event.NewActionEvent(event.ActionPayload{ToolName: toolName, ToolCallID: id, Arguments: args}),
		event.NewObservationEvent(event.ObservationPayload{ToolCallID: id, ToolName: toolName, Content: content}),
	}
}

func TestStuckDetectorIdenticalAssistantMessages(t *testing.T) {
	d := NewStuckDetector(4)
	var events []event.Event
	for i := 0; i < 4; i++ {
		events = append(events, assistantMessage("same"))
	}
	assert.True(t, d.IsStuck(events))
}

func TestStuckDetectorDistinctAssistantMessagesNotStuck(t *testing.T) {
	d := NewStuckDetector(4)
	events := []event.Event{
		assistantMessage("a"), assistantMessage("b"), assistantMessage("c"), assistantMessage("d"),
	}
	assert.False(t, d.IsStuck(events))
}

func TestStuckDetectorIdenticalActionObservationPairs(t *testing.T) {
	d := NewStuckDetector(4)
	var events []event.Event
	for i := 0; i < 4; i++ {
		events = append(events, actionObservation("call", "echo", `{"x":1}`, "same")...)
	}
	assert.True(t, d.IsStuck(events))
}

func TestStuckDetectorDifferentArgumentsNotStuck(t *testing.T) {
	d := NewStuckDetector(4)
	var events []event.Event
	for i := 0; i < 4; i++ {
		events = append(events, actionObservation("call", "echo", `{"x":1}`, "same")...)
	}
	events = append(events, actionObservation("call", "echo", `{"x":2}`, "different")...)
	// Last 4 pairs are now 3 identical + 1 different: not all equal.
	assert.False(t, d.identicalActionObservationPairs(events))
}

func TestStuckDetectorAlternatesBetweenTwoStates(t *testing.T) {
	// Two distinct assistant messages alternating, with neither the
	// identical-messages nor the identical-pairs heuristic able to fire
	// (no four consecutive identical messages, no action/observation
	// pairs at all) - only the alternation heuristic can explain this.
	d := NewStuckDetector(4)
	var events []event.Event
	for i := 0; i < 4; i++ {
		events = append(events, assistantMessage("what would you like?"))
		events = append(events, assistantMessage("I didn't understand, try again"))
	}
	assert.False(t, d.identicalAssistantMessages(events))
	assert.False(t, d.identicalActionObservationPairs(events))
	assert.True(t, d.IsStuck(events))
}

func TestStuckDetectorTooFewEventsNotStuck(t *testing.T) {
	d := NewStuckDetector(4)
	events := []event.Event{assistantMessage("a"), assistantMessage("a")}
	assert.False(t, d.IsStuck(events))
}
