package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadirpekel/hector-core/pkg/condenser"
	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/view"
)

// defaultCondenseKeepRecent is how many of the view's most recent events
// survive a condensation; every conversation uses this value, there is no
// per-conversation setting.
const defaultCondenseKeepRecent = 20

// drive runs the main loop (spec §4.4 pseudocode) from the conversation's
// current status until it reaches a suspension or terminal state:
// waiting_for_confirmation, paused, finished, errored, or a context
// cancellation/fatal error. Only one drive call may be in flight per
// Conversation at a time.
func (c *Conversation) drive(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.paused.CompareAndSwap(true, false) {
			c.setStatus(StatusPaused)
			return nil
		}
		if c.Status() != StatusRunning {
			return nil
		}

		// A confirmation accept leaves actions queued rather than
		// re-running Step; execute those before doing anything else.
		if pending := c.takePendingActions(); len(pending) > 0 {
			if err := c.executeActions(ctx, pending); err != nil {
				return err
			}
			if err := c.afterIterationChecks(ctx); err != nil {
				return err
			}
			continue
		}

		if err := c.runIteration(ctx); err != nil {
			return err
		}
		if c.Status() != StatusRunning {
			return nil
		}
	}
}

// runIteration performs one full pass of the outer loop: budget/iteration
// checks, condensation, one Step call, the confirmation gate, tool
// execution, and the end-of-iteration finished/stuck checks.
func (c *Conversation) runIteration(ctx context.Context) error {
	c.mu.Lock()
	iteration := c.iterationCount
	c.mu.Unlock()

	if iteration >= c.maxIterations {
		return c.terminateWithError(ctx, event.ErrIterationLimitExceeded,
			fmt.Sprintf("iteration limit exceeded (%d)", c.maxIterations))
	}
	if c.budgetExceeded() {
		return c.terminateWithError(ctx, event.ErrBudgetExceeded, "accumulated cost reached max_budget")
	}

	v := view.Project(c.Events())

	if c.condenser.ShouldCondense(v, c.contextWindow) {
		condEv, err := c.condenser.Condense(ctx, v, defaultCondenseKeepRecent)
		switch {
		case err == nil:
			if err := c.appendEvent(ctx, *condEv); err != nil {
				return err
			}
			v = view.Project(c.Events())
		case errors.Is(err, condenser.ErrNothingToCondense):
			// Nothing older to forget; proceed with the view as-is.
		default:
			return fmt.Errorf("conversation: condense: %w", err)
		}
	}

	if c.paused.CompareAndSwap(true, false) {
		c.setStatus(StatusPaused)
		return nil
	}

	stepEvents, err := c.stepEngine.Step(ctx, v, c.gateway, c.tools, c.completionOpts)
	if err != nil {
		return fmt.Errorf("conversation: step: %w", err)
	}
	for _, ev := range stepEvents {
		if err := c.appendEvent(ctx, ev); err != nil {
			return err
		}
	}

	var pendingActions []event.Event
	for _, ev := range stepEvents {
		if ev.Kind == event.KindAction {
			pendingActions = append(pendingActions, ev)
		}
	}

	if len(pendingActions) > 0 {
		payloads := make([]event.ActionPayload, 0, len(pendingActions))
		for _, a := range pendingActions {
			p, _ := a.Action()
			payloads = append(payloads, p)
		}
		c.mu.Lock()
		confirmation := c.confirmation
		c.mu.Unlock()
		if confirmation.RequiresConfirmation(payloads) {
			c.mu.Lock()
			c.pendingActions = pendingActions
			c.status = StatusWaitingForConfirmation
			c.mu.Unlock()
			return nil
		}

		if err := c.executeActions(ctx, pendingActions); err != nil {
			return err
		}
	}

	return c.afterIterationChecks(ctx)
}

// afterIterationChecks applies the finished/stuck checks and advances the
// iteration counter; called both after a fresh Step and after resuming
// a confirmation-accepted batch of actions. Both checks run
// unconditionally, in the order spec.md 4.4's pseudocode lists them: a
// stuck verdict overrides a finished verdict from the very same
// iteration, since a conversation that just produced its Kth identical
// answer is stuck regardless of whether that answer also happened to be
// a final response.
func (c *Conversation) afterIterationChecks(ctx context.Context) error {
	events := c.Events()

	if len(events) > 0 {
		last := events[len(events)-1]
		if last.Kind == event.KindMessage {
			if msg, ok := last.Message(); ok && msg.Role() == event.RoleAssistant {
				c.setStatus(StatusFinished)
			}
		}
	}

	if c.stuck.IsStuck(events) {
		return c.terminateWithError(ctx, event.ErrStuck, "agent appears stuck")
	}

	if c.Status() == StatusFinished {
		return nil
	}

	c.mu.Lock()
	c.iterationCount++
	c.mu.Unlock()
	return nil
}

// executeActions runs each pending action's executor in order, honoring a
// pause request before each one, and appends the resulting
// ObservationEvent (or an error observation if the tool is missing or the
// executor itself fails catastrophically).
func (c *Conversation) executeActions(ctx context.Context, actions []event.Event) error {
	for _, a := range actions {
		if c.paused.CompareAndSwap(true, false) {
			c.mu.Lock()
			remaining := actions
			for i, act := range actions {
				if act.ID == a.ID {
					remaining = actions[i:]
					break
				}
			}
			c.pendingActions = remaining
			c.status = StatusPaused
			c.mu.Unlock()
			return nil
		}

		payload, ok := a.Action()
		if !ok {
			continue
		}

		def, known := c.toolsByName[payload.ToolName]
		if !known {
			if err := c.appendEvent(ctx, event.NewObservationEvent(event.ObservationPayload{
				ToolCallID: payload.ToolCallID,
				ToolName:   payload.ToolName,
				Content:    fmt.Sprintf("tool not registered: %s", payload.ToolName),
				IsError:    true,
			})); err != nil {
				return err
			}
			continue
		}

		obs, err := def.Executor.Execute(ctx, payload.Arguments)
		if err != nil {
			obs = event.ObservationPayload{
				Content: fmt.Sprintf("executor for %s failed: %v", payload.ToolName, err),
				IsError: true,
			}
		}
		obs.ToolCallID = payload.ToolCallID
		obs.ToolName = payload.ToolName
		if err := c.appendEvent(ctx, event.NewObservationEvent(obs)); err != nil {
			return err
		}
	}
	return nil
}

// terminateWithError appends an ErrorEvent of the given kind/detail and
// moves status to errored, returning nil: a terminal status is not a Go
// error, it's the intended outcome of the loop reaching that state. Run's
// caller reads the final status via Status().
func (c *Conversation) terminateWithError(ctx context.Context, kind event.ErrorKind, detail string) error {
	if err := c.appendEvent(ctx, event.NewErrorEvent(kind, detail)); err != nil {
		return err
	}
	c.setStatus(StatusErrored)
	return nil
}

func (c *Conversation) budgetExceeded() bool {
	if c.maxBudget == nil {
		return false
	}
	return c.gateway.Metrics().Snapshot().AccumulatedCost >= *c.maxBudget
}

func (c *Conversation) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

func (c *Conversation) takePendingActions() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.pendingActions
	c.pendingActions = nil
	return pending
}
