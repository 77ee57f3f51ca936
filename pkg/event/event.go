package event

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies who/what caused an Event to be appended.
type Source string

const (
	SourceUser        Source = "user"
	SourceAgent       Source = "agent"
	SourceEnvironment Source = "environment"
	SourceSystem      Source = "system"
)

// Kind discriminates Event variants. Exactly one of the payload fields on
// Event is meaningful for a given Kind; see the accessor methods.
type Kind string

const (
	KindMessage            Kind = "message"
	KindAction             Kind = "action"
	KindObservation        Kind = "observation"
	KindSystemPrompt       Kind = "system_prompt"
	KindCondensationReq    Kind = "condensation_request"
	KindCondensation       Kind = "condensation"
	// KindCondensationSummary is synthetic: the view projection inserts it
	// at summary_offset, it is never appended to a Store.
	KindCondensationSummary Kind = "condensation_summary"
	KindError              Kind = "error"
	KindPause              Kind = "pause"
	KindFinished           Kind = "finished"
)

// ErrorKind enumerates the taxonomy from spec §7. It is a string enum (not a
// Go error type) because events are serialized and compared across process
// boundaries.
type ErrorKind string

const (
	ErrInvalidConfig          ErrorKind = "invalid_config"
	ErrAuth                   ErrorKind = "auth_error"
	ErrProviderTransient      ErrorKind = "provider_transient"
	ErrProviderFatal          ErrorKind = "provider_fatal"
	ErrContextWindowExceeded  ErrorKind = "context_window_exceeded"
	ErrToolExecution          ErrorKind = "tool_execution_error"
	ErrToolMissing            ErrorKind = "tool_missing"
	ErrArgumentValidation     ErrorKind = "argument_validation_error"
	ErrBudgetExceeded         ErrorKind = "budget_exceeded"
	ErrIterationLimitExceeded ErrorKind = "iteration_limit_exceeded"
	ErrStuck                  ErrorKind = "stuck"
	ErrAlreadyRunning         ErrorKind = "already_running"
	ErrPersistence            ErrorKind = "persistence_error"
)

// ActionPayload is the content of a KindAction event: the agent chose to
// invoke a tool.
type ActionPayload struct {
	ToolName      string
	ToolCallID    string
	Arguments     string // raw JSON
	Thought       string
	ReasoningText string
	LLMResponseID string
}

// ObservationPayload is the content of a KindObservation event: the result
// of executing a tool call.
type ObservationPayload struct {
	ToolCallID string
	ToolName   string
	Content    string
	IsError    bool
}

// CondensationPayload is the content of a KindCondensation event: it
// forgets some past events and may substitute a summary at a position in
// the surviving sequence.
type CondensationPayload struct {
	ForgottenEventIDs []string
	Summary           string
	HasSummary        bool
	SummaryOffset     int
}

// ErrorPayload is the content of a KindError event.
type ErrorPayload struct {
	ErrKind ErrorKind
	Detail  string
}

// Event is an immutable, append-only record. It carries a common header
// plus exactly one variant payload, selected by Kind. Events are never
// mutated or deleted after construction; Condensation events hide but do
// not remove the events they forget (the store retains a full audit
// trail).
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Source    Source
	Kind      Kind

	message       *Message
	action        *ActionPayload
	observation   *ObservationPayload
	systemPrompt  string
	condensation  *CondensationPayload
	errorPayload  *ErrorPayload
	summary       string
}

func newHeader(source Source, kind Kind) Event {
	return Event{ID: uuid.New(), Timestamp: time.Now(), Source: source, Kind: kind}
}

// NewMessageEvent wraps a user or assistant Message with no tool call.
func NewMessageEvent(source Source, msg Message) Event {
	e := newHeader(source, KindMessage)
	e.message = &msg
	return e
}

// NewActionEvent records that the agent chose to invoke a tool.
func NewActionEvent(p ActionPayload) Event {
	e := newHeader(SourceAgent, KindAction)
	e.action = &p
	return e
}

// NewObservationEvent records the result of executing a tool call.
func NewObservationEvent(p ObservationPayload) Event {
	e := newHeader(SourceEnvironment, KindObservation)
	e.observation = &p
	return e
}

// NewSystemPromptEvent is emitted once at conversation start.
func NewSystemPromptEvent(text string) Event {
	e := newHeader(SourceSystem, KindSystemPrompt)
	e.systemPrompt = text
	return e
}

// NewCondensationRequestEvent signals "history is too long; please
// summarize".
func NewCondensationRequestEvent() Event {
	return newHeader(SourceSystem, KindCondensationReq)
}

// NewCondensationEvent forgets events and optionally inserts a summary.
func NewCondensationEvent(p CondensationPayload) Event {
	e := newHeader(SourceSystem, KindCondensation)
	e.condensation = &p
	return e
}

// NewCondensationSummaryEvent builds the synthetic event the view
// projection inserts in place of forgotten history. It never passes
// through a Store.
func NewCondensationSummaryEvent(summary string) Event {
	e := newHeader(SourceSystem, KindCondensationSummary)
	e.summary = summary
	return e
}

// NewErrorEvent records a terminal or surfaced error.
func NewErrorEvent(kind ErrorKind, detail string) Event {
	e := newHeader(SourceSystem, KindError)
	e.errorPayload = &ErrorPayload{ErrKind: kind, Detail: detail}
	return e
}

// NewPauseEvent records a pause request being honored.
func NewPauseEvent() Event { return newHeader(SourceUser, KindPause) }

// NewFinishedEvent records the agent concluding the conversation.
func NewFinishedEvent() Event { return newHeader(SourceAgent, KindFinished) }

// Accessors - a payload accessor returns the zero value/nil if the event's
// Kind doesn't match; callers should switch on Kind first.

func (e Event) Message() (Message, bool) {
	if e.message == nil {
		return Message{}, false
	}
	return *e.message, true
}

func (e Event) Action() (ActionPayload, bool) {
	if e.action == nil {
		return ActionPayload{}, false
	}
	return *e.action, true
}

func (e Event) Observation() (ObservationPayload, bool) {
	if e.observation == nil {
		return ObservationPayload{}, false
	}
	return *e.observation, true
}

func (e Event) SystemPromptText() (string, bool) {
	if e.Kind != KindSystemPrompt {
		return "", false
	}
	return e.systemPrompt, true
}

func (e Event) Condensation() (CondensationPayload, bool) {
	if e.condensation == nil {
		return CondensationPayload{}, false
	}
	return *e.condensation, true
}

func (e Event) Error() (ErrorPayload, bool) {
	if e.errorPayload == nil {
		return ErrorPayload{}, false
	}
	return *e.errorPayload, true
}

// Summary returns the text of a KindCondensationSummary event.
func (e Event) Summary() (string, bool) {
	if e.Kind != KindCondensationSummary {
		return "", false
	}
	return e.summary, true
}

// ToolCallIDOrEmpty returns the event's tool_call_id for Action/Observation
// events, or "" for every other kind. Used by the view's unmatched-call
// filtering.
func (e Event) ToolCallIDOrEmpty() string {
	switch e.Kind {
	case KindAction:
		return e.action.ToolCallID
	case KindObservation:
		return e.observation.ToolCallID
	default:
		return ""
	}
}
