// Package conversation implements the Conversation Runtime: the outer
// loop that projects the view, asks the condenser whether to summarize,
// dispatches one agent Step, executes any resulting tool calls through
// their Executors, and applies the confirmation gate, budgets, and stuck
// detection around all of it. Grounded in teacher's
// pkg/agent/llmagent/flow.go outer Run loop (iteration cap, termination
// checks) and pkg/context/progress_tracker.go's atomic running-flag +
// mutex shape for the single-flight guard, re-targeted from the A2A task
// lifecycle to the status enum in spec §3.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kadirpekel/hector-core/pkg/condenser"
	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/eventstore"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/step"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// Status is the conversation's execution state, spec §3.
type Status string

const (
	StatusIdle                   Status = "idle"
	StatusRunning                Status = "running"
	StatusWaitingForConfirmation Status = "waiting_for_confirmation"
	StatusPaused                 Status = "paused"
	StatusFinished               Status = "finished"
	StatusErrored                Status = "errored"
)

// ErrAlreadyRunning is returned by Run/Resume/RespondToConfirmation when
// another call is already driving this conversation's loop (spec §5: one
// conversation has one logical owner goroutine).
var ErrAlreadyRunning = errors.New("conversation: already running")

// ErrNotWaitingForConfirmation is returned by RespondToConfirmation when
// the conversation isn't currently suspended on the confirmation gate.
var ErrNotWaitingForConfirmation = errors.New("conversation: not waiting for confirmation")

// ErrNotPaused is returned by Resume when the conversation isn't paused.
var ErrNotPaused = errors.New("conversation: not paused")

// Config constructs a Conversation.
type Config struct {
	ID             string
	WorkspacePath  string
	SystemPrompt   string
	Gateway        *llm.Gateway
	ContextWindow  int // model context window, in tokens, for the condenser's ShouldCondense check
	Condenser      condenser.Condenser
	Tools          []tool.Definition
	Confirmation   Policy
	MaxIterations  int
	MaxBudget      *float64
	Store          eventstore.Store
	StuckWindow    int
	CompletionOpts llm.Options
}

// Conversation owns one agent's loop: event log, tool set, confirmation
// policy, and the mutable execution status spec §3 describes.
type Conversation struct {
	id            string
	workspacePath string

	gateway        *llm.Gateway
	contextWindow  int
	condenser      condenser.Condenser
	stepEngine     *step.Engine
	completionOpts llm.Options

	tools      []tool.Definition
	toolsByName map[string]tool.Definition

	confirmation Policy
	stuck        StuckDetector

	maxIterations int
	maxBudget     *float64

	store eventstore.Store

	running atomic.Bool
	paused  atomic.Bool

	mu             sync.Mutex
	status         Status
	iterationCount int
	events         []event.Event
	pendingActions []event.Event // ActionEvents awaiting confirmation
	createdAt      time.Time
	updatedAt      time.Time
	closed         bool
}

// New builds a Conversation from cfg, seeding the event log with a
// SystemPromptEvent if cfg.SystemPrompt is non-empty.
func New(cfg Config) (*Conversation, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("conversation: gateway is required")
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("conversation: id is required")
	}

	store := cfg.Store
	if store == nil {
		store = eventstore.NewMemoryStore()
	}
	cond := cfg.Condenser
	if cond == nil {
		cond = condenser.NoOpCondenser{}
	}
	confirmation := cfg.Confirmation
	if confirmation == nil {
		confirmation = NeverConfirm{}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 100
	}

	byName := make(map[string]tool.Definition, len(cfg.Tools))
	for _, t := range cfg.Tools {
		byName[t.Name] = t
	}

	now := time.Now()
	c := &Conversation{
		id:             cfg.ID,
		workspacePath:  cfg.WorkspacePath,
		gateway:        cfg.Gateway,
		contextWindow:  cfg.ContextWindow,
		condenser:      cond,
		stepEngine:     step.New(),
		completionOpts: cfg.CompletionOpts,
		tools:          cfg.Tools,
		toolsByName:    byName,
		confirmation:   confirmation,
		stuck:          NewStuckDetector(cfg.StuckWindow),
		maxIterations:  maxIterations,
		maxBudget:      cfg.MaxBudget,
		store:          store,
		status:         StatusIdle,
		createdAt:      now,
		updatedAt:      now,
	}

	if cfg.SystemPrompt != "" {
		if err := c.appendEvent(context.Background(), event.NewSystemPromptEvent(cfg.SystemPrompt)); err != nil {
			return nil, fmt.Errorf("conversation: seed system prompt: %w", err)
		}
	}
	return c, nil
}

// WorkspacePath and ConversationID implement tool.ConversationState, so a
// *Conversation can be passed directly to a tool.Registry.Resolve call.
func (c *Conversation) WorkspacePath() string  { return c.workspacePath }
func (c *Conversation) ConversationID() string { return c.id }

// Status returns the conversation's current execution status.
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Events returns a defensive copy of the full, unprojected event log.
func (c *Conversation) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// Append adds an externally-sourced event (typically a user MessageEvent)
// to the log. It performs no status check, so it is valid from any status,
// including while the loop is actively driving (Run/Resume/
// RespondToConfirmation hold no lock across appends, so this only blocks
// for the duration of a single append).
func (c *Conversation) Append(ctx context.Context, ev event.Event) error {
	return c.appendEvent(ctx, ev)
}

func (c *Conversation) appendEvent(ctx context.Context, ev event.Event) error {
	if _, err := c.store.Append(ctx, c.id, ev); err != nil {
		return fmt.Errorf("conversation: append: %w", err)
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.updatedAt = time.Now()
	c.mu.Unlock()
	return nil
}

// Pause requests that the loop suspend at its next checkpoint (the top of
// the next loop pass, before the next LLM call, or before the next tool
// execution). Safe to call from any goroutine. The request is recorded
// whatever the current status: if the conversation isn't running, the
// next call that drives the loop stops at its first checkpoint.
func (c *Conversation) Pause() {
	c.paused.Store(true)
}

// Resume clears a pause and re-enters the driving loop. Returns
// ErrNotPaused if the conversation isn't currently paused, or
// ErrAlreadyRunning if another call is already driving the loop.
func (c *Conversation) Resume(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusPaused {
		c.mu.Unlock()
		return ErrNotPaused
	}
	c.status = StatusRunning
	c.mu.Unlock()
	return c.drive(ctx)
}

// Run drives the conversation's loop from its current status.
// StatusIdle, StatusPaused, and StatusFinished are valid entry states -
// finished is included because appending a new user message is exactly
// how a multi-turn conversation continues after a prior turn's final
// response. Call Resume instead of Run to continue a paused conversation
// without a new message, and RespondToConfirmation instead of Run to
// continue one waiting on the confirmation gate.
func (c *Conversation) Run(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusIdle, StatusPaused, StatusFinished:
		c.status = StatusRunning
	default:
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("conversation: cannot run from status %q", status)
	}
	c.mu.Unlock()
	return c.drive(ctx)
}

// RespondToConfirmation resolves the confirmation gate. Accepting leaves
// the pending actions queued for drive to execute as the first thing it
// does on resumption; rejecting converts each one into an
// ObservationEvent{IsError:true} carrying reason immediately, so drive
// resumes with a clean slate and proceeds straight to a fresh iteration.
// Returns ErrNotWaitingForConfirmation if the conversation isn't
// currently suspended on the gate.
func (c *Conversation) RespondToConfirmation(ctx context.Context, accept bool, reason string) error {
	c.mu.Lock()
	if c.status != StatusWaitingForConfirmation {
		c.mu.Unlock()
		return ErrNotWaitingForConfirmation
	}
	pending := c.pendingActions
	if accept {
		c.status = StatusRunning
	}
	c.mu.Unlock()

	if !accept {
		for _, a := range pending {
			payload, _ := a.Action()
			if err := c.appendEvent(ctx, event.NewObservationEvent(event.ObservationPayload{
				ToolCallID: payload.ToolCallID,
				ToolName:   payload.ToolName,
				Content:    fmt.Sprintf("User rejected: %s", reason),
				IsError:    true,
			})); err != nil {
				return err
			}
		}
		c.mu.Lock()
		c.pendingActions = nil
		c.status = StatusRunning
		c.mu.Unlock()
	}

	return c.drive(ctx)
}

// SetConfirmationPolicy replaces the confirmation policy gating future
// tool-call batches. Takes effect starting with the next iteration the
// loop evaluates; it never affects actions already pending confirmation.
func (c *Conversation) SetConfirmationPolicy(p Policy) {
	if p == nil {
		p = NeverConfirm{}
	}
	c.mu.Lock()
	c.confirmation = p
	c.mu.Unlock()
}

// Close releases every tool executor's resources. Idempotent: a second
// call is a no-op. Per-executor errors are logged, not returned, so one
// stuck executor can't stop the others from closing, matching spec §4.4's
// "swallowing and logging per-executor errors."
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	for _, t := range c.tools {
		if t.Executor == nil {
			continue
		}
		if err := t.Executor.Close(); err != nil {
			slog.Warn("conversation: tool executor close failed", "tool", t.Name, "error", err)
		}
	}
	return c.store.Close()
}

var _ tool.ConversationState = (*Conversation)(nil)
