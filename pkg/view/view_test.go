package view

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kadirpekel/hector-core/pkg/event"
)

func messageEvent(text string) event.Event {
	return event.NewMessageEvent(event.SourceUser, event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(text)}))
}

func condensation(forgotten []string) event.Event {
	return event.NewCondensationEvent(event.CondensationPayload{ForgottenEventIDs: forgotten})
}

func condensationWithSummary(forgotten []string, summary string, offset int) event.Event {
	return event.NewCondensationEvent(event.CondensationPayload{
		ForgottenEventIDs: forgotten,
		Summary:           summary,
		HasSummary:        true,
		SummaryOffset:     offset,
	})
}

func actionEvent(callID string) event.Event {
	return event.NewActionEvent(event.ActionPayload{ToolCallID: callID, ToolName: "t"})
}

func observationEvent(callID string) event.Event {
	return event.NewObservationEvent(event.ObservationPayload{ToolCallID: callID, ToolName: "t"})
}

func TestViewPreservesUncondensedLists(t *testing.T) {
	events := make([]event.Event, 5)
	for i := range events {
		events[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	v := Project(events)
	assert.Len(t, v.Events, 5)
	assert.Equal(t, events, v.Events)
}

func TestViewForgetsEvents(t *testing.T) {
	messages := make([]event.Event, 5)
	ids := make([]string, 5)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
		ids[i] = messages[i].ID.String()
	}
	events := append(append([]event.Event{}, messages...), condensation(ids))

	v := Project(events)
	assert.Empty(t, v.Events)
}

func TestViewKeepsNonForgottenEvents(t *testing.T) {
	messages := make([]event.Event, 5)
	ids := make([]string, 5)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
		ids[i] = messages[i].ID.String()
	}

	for _, forgottenID := range ids {
		events := append(append([]event.Event{}, messages...), condensation([]string{forgottenID}))
		v := Project(events)

		assert.Len(t, v.Events, len(messages)-1)
		for _, e := range v.Events {
			assert.NotEqual(t, forgottenID, e.ID.String())
		}
	}
}

func TestViewInsertsSummary(t *testing.T) {
	messages := make([]event.Event, 5)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	for offset := 0; offset < 5; offset++ {
		events := append(append([]event.Event{}, messages...), condensationWithSummary(nil, "My Summary", offset))
		v := Project(events)

		assert.Len(t, v.Events, 6)
		for index, e := range v.Events {
			switch {
			case index == offset:
				summary, ok := e.Summary()
				assert.True(t, ok)
				assert.Equal(t, "My Summary", summary)
			case index < offset:
				msg, ok := e.Message()
				assert.True(t, ok)
				assert.Equal(t, fmt.Sprintf("Event %d", index), msg.Text())
			default:
				msg, ok := e.Message()
				assert.True(t, ok)
				assert.Equal(t, fmt.Sprintf("Event %d", index-1), msg.Text())
			}
		}
	}
}

func TestNoCondensationActionInView(t *testing.T) {
	messages := make([]event.Event, 4)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	events := []event.Event{
		messages[0], messages[1],
		condensation([]string{messages[0].ID.String()}),
		messages[2], messages[3],
	}

	v := Project(events)
	for _, e := range v.Events {
		assert.NotEqual(t, event.KindCondensation, e.Kind)
	}
	assert.Len(t, v.Events, 3)
}

func TestUnhandledCondensationRequestWithNoCondensation(t *testing.T) {
	events := []event.Event{
		messageEvent("Event 0"),
		messageEvent("Event 1"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 2"),
	}
	v := Project(events)

	assert.True(t, v.UnhandledCondensationRequest)
	assert.Len(t, v.Events, 3)
	for _, e := range v.Events {
		assert.NotEqual(t, event.KindCondensationReq, e.Kind)
	}
}

func TestHandledCondensationRequestWithCondensationAction(t *testing.T) {
	events := []event.Event{
		messageEvent("Event 0"),
		messageEvent("Event 1"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 2"),
	}
	forgotten := []string{events[0].ID.String(), events[1].ID.String()}
	events = append(events, condensation(forgotten))
	events = append(events, messageEvent("Event 3"))

	v := Project(events)

	assert.False(t, v.UnhandledCondensationRequest)
	assert.Len(t, v.Events, 2)
	for _, e := range v.Events {
		assert.NotEqual(t, event.KindCondensationReq, e.Kind)
		assert.NotEqual(t, event.KindCondensation, e.Kind)
	}
}

func TestMultipleCondensationRequestsPattern(t *testing.T) {
	events := []event.Event{
		messageEvent("Event 0"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 1"),
		condensation(nil),
		messageEvent("Event 2"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 3"),
	}
	v := Project(events)

	assert.True(t, v.UnhandledCondensationRequest)
	assert.Len(t, v.Events, 4)
	for _, e := range v.Events {
		assert.NotEqual(t, event.KindCondensationReq, e.Kind)
		assert.NotEqual(t, event.KindCondensation, e.Kind)
	}
}

func TestCondensationActionBeforeRequest(t *testing.T) {
	events := []event.Event{
		messageEvent("Event 0"),
		condensation(nil),
		messageEvent("Event 1"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 2"),
	}
	v := Project(events)

	assert.True(t, v.UnhandledCondensationRequest)
	assert.Len(t, v.Events, 3)
}

func TestNoCondensationEvents(t *testing.T) {
	events := []event.Event{
		messageEvent("Event 0"),
		messageEvent("Event 1"),
		messageEvent("Event 2"),
	}
	v := Project(events)

	assert.False(t, v.UnhandledCondensationRequest)
	assert.Equal(t, events, v.Events)
}

func TestCondensationRequestAlwaysRemovedFromView(t *testing.T) {
	unhandled := []event.Event{
		messageEvent("Event 0"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 1"),
	}
	vUnhandled := Project(unhandled)
	assert.True(t, vUnhandled.UnhandledCondensationRequest)
	assert.Len(t, vUnhandled.Events, 2)

	handled := []event.Event{
		messageEvent("Event 0"),
		event.NewCondensationRequestEvent(),
		messageEvent("Event 1"),
		condensation(nil),
		messageEvent("Event 2"),
	}
	vHandled := Project(handled)
	assert.False(t, vHandled.UnhandledCondensationRequest)
	assert.Len(t, vHandled.Events, 3)
}

func TestCondensationsFieldEmptyWhenNoCondensations(t *testing.T) {
	events := make([]event.Event, 3)
	for i := range events {
		events[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	v := Project(events)
	assert.Empty(t, v.Condensations)
	_, ok := v.MostRecentCondensation()
	assert.False(t, ok)
}

func TestCondensationsFieldStoresAllCondensationsInOrder(t *testing.T) {
	messages := make([]event.Event, 5)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	c1 := condensationWithSummary([]string{messages[0].ID.String()}, "Summary 1", 0)
	c2 := condensationWithSummary([]string{messages[1].ID.String()}, "Summary 2", 0)
	c3 := condensationWithSummary(nil, "Summary 3", 0)

	events := []event.Event{
		messages[0], messages[1], c1, messages[2], c2, messages[3], messages[4], c3,
	}

	v := Project(events)
	assert.Len(t, v.Condensations, 3)
	assert.Equal(t, c1.ID, v.Condensations[0].ID)
	assert.Equal(t, c2.ID, v.Condensations[1].ID)
	assert.Equal(t, c3.ID, v.Condensations[2].ID)
}

func TestMostRecentCondensationProperty(t *testing.T) {
	messages := make([]event.Event, 3)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	v0 := Project(messages)
	_, ok := v0.MostRecentCondensation()
	assert.False(t, ok)

	c1 := condensationWithSummary(nil, "First summary", 0)
	v1 := Project(append(append([]event.Event{}, messages...), c1))
	got, ok := v1.MostRecentCondensation()
	assert.True(t, ok)
	assert.Equal(t, c1.ID, got.ID)

	c2 := condensationWithSummary(nil, "Second summary", 0)
	c3 := condensationWithSummary(nil, "Third summary", 0)
	events := []event.Event{
		messages[0], c1, messages[1], c2, messages[2], c3,
	}
	v2 := Project(events)
	got2, ok := v2.MostRecentCondensation()
	assert.True(t, ok)
	assert.Equal(t, c3.ID, got2.ID)
}

func TestCondensationsFieldWithMixedEvents(t *testing.T) {
	messages := make([]event.Event, 4)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	c1 := condensation([]string{messages[0].ID.String()})
	c2 := condensation(nil)

	events := []event.Event{
		messages[0],
		event.NewCondensationRequestEvent(),
		messages[1],
		c1,
		messages[2],
		event.NewCondensationRequestEvent(),
		c2,
		messages[3],
	}

	v := Project(events)
	assert.Len(t, v.Condensations, 2)
	assert.Equal(t, c1.ID, v.Condensations[0].ID)
	assert.Equal(t, c2.ID, v.Condensations[1].ID)
	got, ok := v.MostRecentCondensation()
	assert.True(t, ok)
	assert.Equal(t, c2.ID, got.ID)
}

func TestSummaryEventIndexNoneWhenNoSummary(t *testing.T) {
	events := make([]event.Event, 3)
	for i := range events {
		events[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	v := Project(events)
	assert.Nil(t, v.SummaryEventIndex)
	_, ok := v.SummaryEvent()
	assert.False(t, ok)
}

func TestSummaryEventIndexNoneWhenCondensationHasNoSummary(t *testing.T) {
	messages := make([]event.Event, 3)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	c := condensation([]string{messages[0].ID.String()})
	events := []event.Event{messages[0], messages[1], c, messages[2]}

	v := Project(events)
	assert.Nil(t, v.SummaryEventIndex)
	_, ok := v.SummaryEvent()
	assert.False(t, ok)
	assert.Len(t, v.Condensations, 1)
}

func TestSummaryEventIndexAndEventWithSummary(t *testing.T) {
	messages := make([]event.Event, 4)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	c := condensationWithSummary([]string{messages[0].ID.String()}, "This is a test summary", 1)
	events := []event.Event{messages[0], messages[1], c, messages[2], messages[3]}

	v := Project(events)
	if assert.NotNil(t, v.SummaryEventIndex) {
		assert.Equal(t, 1, *v.SummaryEventIndex)
	}
	summaryEvent, ok := v.SummaryEvent()
	assert.True(t, ok)
	summaryText, ok := summaryEvent.Summary()
	assert.True(t, ok)
	assert.Equal(t, "This is a test summary", summaryText)

	assert.Len(t, v.Events, 4)
	assert.Equal(t, summaryEvent.ID, v.Events[1].ID)
}

func TestSummaryEventWithMultipleCondensations(t *testing.T) {
	messages := make([]event.Event, 5)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}

	c1 := condensationWithSummary([]string{messages[0].ID.String()}, "First summary", 0)
	c2 := condensationWithSummary([]string{messages[1].ID.String()}, "Second summary", 1)

	events := []event.Event{
		messages[0], messages[1], c1, messages[2], c2, messages[3], messages[4],
	}

	v := Project(events)
	if assert.NotNil(t, v.SummaryEventIndex) {
		assert.Equal(t, 1, *v.SummaryEventIndex)
	}
	summaryEvent, ok := v.SummaryEvent()
	assert.True(t, ok)
	summaryText, _ := summaryEvent.Summary()
	assert.Equal(t, "Second summary", summaryText)
	assert.Len(t, v.Condensations, 2)
}

func TestSummaryEventWithCondensationWithoutOffset(t *testing.T) {
	messages := make([]event.Event, 3)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	c := event.NewCondensationEvent(event.CondensationPayload{
		ForgottenEventIDs: []string{messages[0].ID.String()},
		Summary:           "This summary should be ignored",
	})
	events := []event.Event{messages[0], messages[1], c, messages[2]}

	v := Project(events)
	assert.Nil(t, v.SummaryEventIndex)
	_, ok := v.SummaryEvent()
	assert.False(t, ok)
}

func TestSummaryEventWithZeroOffset(t *testing.T) {
	messages := make([]event.Event, 3)
	for i := range messages {
		messages[i] = messageEvent(fmt.Sprintf("Event %d", i))
	}
	c := condensationWithSummary([]string{messages[0].ID.String()}, "Summary at beginning", 0)
	events := []event.Event{messages[0], messages[1], c, messages[2]}

	v := Project(events)
	if assert.NotNil(t, v.SummaryEventIndex) {
		assert.Equal(t, 0, *v.SummaryEventIndex)
	}
	summaryEvent, ok := v.SummaryEvent()
	assert.True(t, ok)
	summaryText, _ := summaryEvent.Summary()
	assert.Equal(t, "Summary at beginning", summaryText)
	assert.Equal(t, summaryEvent.ID, v.Events[0].ID)
}

func TestFilterUnmatchedToolCallsEmptyList(t *testing.T) {
	result := FilterUnmatchedToolCalls(nil)
	assert.Empty(t, result)
}

func TestFilterUnmatchedToolCallsNoToolEvents(t *testing.T) {
	events := []event.Event{messageEvent("a"), messageEvent("b")}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 2)
}

func TestFilterUnmatchedToolCallsMatchedPairs(t *testing.T) {
	events := []event.Event{
		messageEvent("m"),
		actionEvent("call_1"), observationEvent("call_1"),
		actionEvent("call_2"), observationEvent("call_2"),
	}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 5)
}

func TestFilterUnmatchedToolCallsUnmatchedAction(t *testing.T) {
	events := []event.Event{
		messageEvent("m"),
		actionEvent("call_1"), observationEvent("call_1"),
		actionEvent("call_2"),
	}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 3)
	for _, e := range result {
		if e.Kind == event.KindAction {
			assert.Equal(t, "call_1", e.ToolCallIDOrEmpty())
		}
	}
}

func TestFilterUnmatchedToolCallsUnmatchedObservation(t *testing.T) {
	events := []event.Event{
		messageEvent("m"),
		actionEvent("call_1"), observationEvent("call_1"),
		observationEvent("call_2"),
	}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 3)
	for _, e := range result {
		if e.Kind == event.KindObservation {
			assert.Equal(t, "call_1", e.ToolCallIDOrEmpty())
		}
	}
}

func TestFilterUnmatchedToolCallsMixedScenario(t *testing.T) {
	events := []event.Event{
		messageEvent("m1"),
		actionEvent("call_1"), observationEvent("call_1"),
		actionEvent("call_2"), observationEvent("call_3"),
		messageEvent("m2"),
		actionEvent("call_4"), observationEvent("call_4"),
	}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 6)
}

func TestFilterUnmatchedToolCallsNoneToolCallID(t *testing.T) {
	events := []event.Event{
		actionEvent(""), observationEvent(""),
		actionEvent("call_1"), observationEvent("call_1"),
	}
	result := FilterUnmatchedToolCalls(events)
	assert.Len(t, result, 2)
	for _, e := range result {
		assert.Equal(t, "call_1", e.ToolCallIDOrEmpty())
	}
}
