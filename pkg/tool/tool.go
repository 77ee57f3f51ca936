// Package tool defines the name -> schema + invocable-executor contract
// that the conversation runtime uses to resolve and execute tool calls,
// whether the tool runs locally in-process or is forwarded to a remote
// MCP server.
package tool

import (
	"context"

	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/registry"
)

// Definition describes a tool to the LLM and carries the executor that
// actually runs it.
type Definition struct {
	Name        string
	Description string
	InputSchema map[string]any // JSON-Schema
	Annotations map[string]any
	Executor    Executor
}

// Executor invokes a tool call and returns an observation. Implementations
// MUST NOT fail the call for ordinary tool errors (bad arguments, command
// exit code, HTTP error) - those are reported via
// event.ObservationPayload.IsError. Executor.Execute returning a non-nil
// error signals a catastrophic failure (the executor itself could not run),
// which the conversation runtime records as an ObservationEvent with
// IsError set, carrying the error text; the conversation keeps running.
type Executor interface {
	Execute(ctx context.Context, argumentsJSON string) (event.ObservationPayload, error)

	// Close releases any resources the executor holds (subprocess handles,
	// network connections). Safe to call more than once.
	Close() error
}

// LocalFunc adapts a plain Go function into an Executor. The function
// reports tool-level failures via the returned ObservationPayload, not via
// the error return, which LocalFunc reserves for catastrophic failure.
type LocalFunc func(ctx context.Context, argumentsJSON string) (event.ObservationPayload, error)

// localExecutor wraps a LocalFunc as an Executor with a no-op Close.
type localExecutor struct {
	fn LocalFunc
}

// NewLocalExecutor builds an Executor from a synchronous function. It is
// safe to call Execute from the conversation runtime's own goroutine.
func NewLocalExecutor(fn LocalFunc) Executor {
	return &localExecutor{fn: fn}
}

func (l *localExecutor) Execute(ctx context.Context, argumentsJSON string) (event.ObservationPayload, error) {
	return l.fn(ctx, argumentsJSON)
}

func (l *localExecutor) Close() error { return nil }

// ConversationState is the minimal view of conversation state a tool
// Factory needs in order to bind itself to a workspace. It is an interface
// (not the full conversation.State) so this package has no dependency on
// the conversation package.
type ConversationState interface {
	WorkspacePath() string
	ConversationID() string
}

// Factory builds concrete tool definitions bound to a conversation's
// state. Factories are registered once per tool name in the process-wide
// Registry and resolved when a conversation starts.
type Factory func(ConversationState) ([]Definition, error)

// Registry maps tool name -> factory. Registration is write-once per name
// (mirrors the process-wide, write-once LLM registry in pkg/llm).
type Registry struct {
	base *registry.BaseRegistry[Factory]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{base: registry.NewBaseRegistry[Factory]()}
}

// Register adds a tool factory under name. Returns an error if name is
// already registered.
func (r *Registry) Register(name string, factory Factory) error {
	return r.base.Register(name, factory)
}

// Resolve looks up the named factories and builds concrete Definitions for
// the given conversation state, in the order names were requested.
func (r *Registry) Resolve(state ConversationState, names []string) ([]Definition, error) {
	var out []Definition
	for _, name := range names {
		factory, ok := r.base.Get(name)
		if !ok {
			return nil, &MissingError{Name: name}
		}
		defs, err := factory(state)
		if err != nil {
			return nil, err
		}
		out = append(out, defs...)
	}
	return out, nil
}

// Names returns every registered tool name, in no particular order.
func (r *Registry) Names() []string {
	return r.base.Names()
}

// MissingError reports that a declared tool name has no registered
// factory - fatal for the step that requested it, per spec §7
// (ToolMissing).
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return "tool not registered: " + e.Name
}
