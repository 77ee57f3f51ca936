package conversation

import "github.com/kadirpekel/hector-core/pkg/event"

// DefaultStuckWindow is K from spec §4.4.
const DefaultStuckWindow = 4

// StuckDetector implements the three stuck heuristics from spec §4.4 over
// a conversation's raw (unprojected) event log.
type StuckDetector struct {
	k int
}

// NewStuckDetector builds a StuckDetector with window k, defaulting to
// DefaultStuckWindow when k is not positive.
func NewStuckDetector(k int) StuckDetector {
	if k <= 0 {
		k = DefaultStuckWindow
	}
	return StuckDetector{k: k}
}

// IsStuck reports whether events exhibit any of: (a) the last K assistant
// messages are identical, (b) the last K action/observation pairs are
// identical in (tool_name, arguments, content), (c) the agent alternates
// between exactly two distinct turn signatures for >= 2K steps.
func (d StuckDetector) IsStuck(events []event.Event) bool {
	return d.identicalAssistantMessages(events) ||
		d.identicalActionObservationPairs(events) ||
		d.alternatesBetweenTwoStates(events)
}

func (d StuckDetector) identicalAssistantMessages(events []event.Event) bool {
	var texts []string
	for _, e := range events {
		if e.Kind != event.KindMessage {
			continue
		}
		msg, ok := e.Message()
		if !ok || msg.Role() != event.RoleAssistant {
			continue
		}
		texts = append(texts, msg.Text())
	}
	return allEqualTail(texts, d.k)
}

func (d StuckDetector) identicalActionObservationPairs(events []event.Event) bool {
	return allEqualTail(actionObservationPairKeys(events), d.k)
}

// alternatesBetweenTwoStates looks at the last 2K turn signatures
// (assistant messages and completed action/observation pairs, in
// chronological order) and reports whether they strictly alternate
// between exactly two distinct values.
func (d StuckDetector) alternatesBetweenTwoStates(events []event.Event) bool {
	signatures := turnSignatures(events)
	window := 2 * d.k
	if len(signatures) < window {
		return false
	}
	tail := signatures[len(signatures)-window:]

	a, b := tail[0], tail[1]
	if a == b {
		return false
	}
	for i, sig := range tail {
		want := a
		if i%2 == 1 {
			want = b
		}
		if sig != want {
			return false
		}
	}
	return true
}

// allEqualTail reports whether the last k elements of vals all exist and
// are pairwise equal.
func allEqualTail(vals []string, k int) bool {
	if k <= 0 || len(vals) < k {
		return false
	}
	tail := vals[len(vals)-k:]
	for _, v := range tail[1:] {
		if v != tail[0] {
			return false
		}
	}
	return true
}

// actionObservationPairKeys walks events in order, matching each Action
// to the Observation sharing its tool_call_id (the last such Observation
// in events, if several share it), and returns one key
// per completed pair in the order the action occurred.
func actionObservationPairKeys(events []event.Event) []string {
	observationByCallID := make(map[string]event.ObservationPayload)
	for _, e := range events {
		if e.Kind != event.KindObservation {
			continue
		}
		if obs, ok := e.Observation(); ok {
			observationByCallID[obs.ToolCallID] = obs
		}
	}

	var keys []string
	for _, e := range events {
		if e.Kind != event.KindAction {
			continue
		}
		action, ok := e.Action()
		if !ok {
			continue
		}
		obs, ok := observationByCallID[action.ToolCallID]
		if !ok {
			continue
		}
		keys = append(keys, action.ToolName+"|"+action.Arguments+"|"+obs.Content)
	}
	return keys
}

// turnSignatures returns one signature per assistant message and one per
// completed action/observation pair, interleaved in the order they
// appear in events, for the alternation heuristic.
func turnSignatures(events []event.Event) []string {
	observationByCallID := make(map[string]event.ObservationPayload)
	for _, e := range events {
		if e.Kind != event.KindObservation {
			continue
		}
		if obs, ok := e.Observation(); ok {
			observationByCallID[obs.ToolCallID] = obs
		}
	}

	var signatures []string
	for _, e := range events {
		switch e.Kind {
		case event.KindMessage:
			msg, ok := e.Message()
			if !ok || msg.Role() != event.RoleAssistant {
				continue
			}
			signatures = append(signatures, "msg:"+msg.Text())

		case event.KindAction:
			action, ok := e.Action()
			if !ok {
				continue
			}
			obs, ok := observationByCallID[action.ToolCallID]
			if !ok {
				continue
			}
			signatures = append(signatures, "tool:"+action.ToolName+"|"+action.Arguments+"|"+obs.Content)
		}
	}
	return signatures
}
