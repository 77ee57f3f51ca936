// Package view projects the append-only event log into the ordered
// message sequence the LLM gateway actually sees: condensation events
// removed, forgotten events dropped, dangling tool calls filtered, and
// any pending summary spliced back in at its recorded offset.
package view

import (
	"log/slog"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// View is the result of Project: a read-only, already-filtered event
// sequence plus the condensation bookkeeping callers need to decide
// whether another round of summarization is owed.
type View struct {
	Events []event.Event

	// Condensations holds every Condensation event found in the source
	// log, in the order they occurred. Empty if none.
	Condensations []event.Event

	// UnhandledCondensationRequest is true iff the most recent
	// CondensationRequest occurs after the most recent Condensation (or
	// there is a request and no Condensation at all).
	UnhandledCondensationRequest bool

	// SummaryEventIndex is the index into Events of the synthetic
	// CondensationSummaryEvent inserted from the most recent
	// Condensation's summary, or nil if no summary was inserted.
	SummaryEventIndex *int
}

func (v View) Len() int { return len(v.Events) }

// MostRecentCondensation returns the last Condensation event seen, if
// any.
func (v View) MostRecentCondensation() (event.Event, bool) {
	if len(v.Condensations) == 0 {
		return event.Event{}, false
	}
	return v.Condensations[len(v.Condensations)-1], true
}

// SummaryEvent returns the inserted summary event, if Project inserted
// one.
func (v View) SummaryEvent() (event.Event, bool) {
	if v.SummaryEventIndex == nil {
		return event.Event{}, false
	}
	return v.Events[*v.SummaryEventIndex], true
}

// Project is the pure, deterministic function described in spec.md
// §4.6: it never mutates its input and never performs I/O, so callers
// may invoke it once per step without memoization.
func Project(events []event.Event) View {
	forgotten := make(map[string]bool)
	var condensations []event.Event
	lastCondensationPos := -1
	lastRequestPos := -1

	for i, e := range events {
		switch e.Kind {
		case event.KindCondensation:
			condensations = append(condensations, e)
			lastCondensationPos = i
			if payload, ok := e.Condensation(); ok {
				for _, id := range payload.ForgottenEventIDs {
					forgotten[id] = true
				}
			}
		case event.KindCondensationReq:
			lastRequestPos = i
		}
	}
	unhandled := lastRequestPos > lastCondensationPos

	kept := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.Kind == event.KindCondensation || e.Kind == event.KindCondensationReq {
			continue
		}
		if forgotten[e.ID.String()] {
			continue
		}
		kept = append(kept, e)
	}

	kept = FilterUnmatchedToolCalls(kept)

	var summaryIndex *int
	if len(condensations) > 0 {
		mostRecent := condensations[len(condensations)-1]
		if payload, ok := mostRecent.Condensation(); ok && payload.HasSummary {
			offset := payload.SummaryOffset
			if offset < 0 {
				offset = 0
			}
			if offset > len(kept) {
				// An offset recorded against a history that has since
				// shrunk (more forgetting, more filtering) is clamped to
				// the end rather than treated as an error.
				slog.Warn("view: summary_offset past end of surviving events, clamping",
					"summary_offset", offset, "surviving_count", len(kept))
				offset = len(kept)
			}
			summary := event.NewCondensationSummaryEvent(payload.Summary)
			kept = insertAt(kept, offset, summary)
			idx := offset
			summaryIndex = &idx
		}
	}

	return View{
		Events:                       kept,
		Condensations:                condensations,
		UnhandledCondensationRequest: unhandled,
		SummaryEventIndex:            summaryIndex,
	}
}

func insertAt(events []event.Event, index int, e event.Event) []event.Event {
	out := make([]event.Event, 0, len(events)+1)
	out = append(out, events[:index]...)
	out = append(out, e)
	out = append(out, events[index:]...)
	return out
}

// FilterUnmatchedToolCalls removes every ActionEvent without a matching
// ObservationEvent (by tool_call_id) and vice versa; events with an
// empty tool_call_id are dropped by the same rule since they can never
// match. Events of any other kind always survive.
func FilterUnmatchedToolCalls(events []event.Event) []event.Event {
	actionIDs := actionToolCallIDs(events)
	obsIDs := observationToolCallIDs(events)

	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if shouldKeepEvent(e, actionIDs, obsIDs) {
			out = append(out, e)
		}
	}
	return out
}

func actionToolCallIDs(events []event.Event) map[string]bool {
	ids := make(map[string]bool)
	for _, e := range events {
		if e.Kind != event.KindAction {
			continue
		}
		if id := e.ToolCallIDOrEmpty(); id != "" {
			ids[id] = true
		}
	}
	return ids
}

func observationToolCallIDs(events []event.Event) map[string]bool {
	ids := make(map[string]bool)
	for _, e := range events {
		if e.Kind != event.KindObservation {
			continue
		}
		if id := e.ToolCallIDOrEmpty(); id != "" {
			ids[id] = true
		}
	}
	return ids
}

func shouldKeepEvent(e event.Event, actionIDs, obsIDs map[string]bool) bool {
	switch e.Kind {
	case event.KindAction:
		id := e.ToolCallIDOrEmpty()
		return id != "" && obsIDs[id]
	case event.KindObservation:
		id := e.ToolCallIDOrEmpty()
		return id != "" && actionIDs[id]
	default:
		return true
	}
}
