package conversation

import "github.com/kadirpekel/hector-core/pkg/event"

// Policy decides whether a batch of pending tool calls needs human
// confirmation before execution, per spec §4.4.
type Policy interface {
	RequiresConfirmation(actions []event.ActionPayload) bool
}

// NeverConfirm never suspends; every action runs immediately.
type NeverConfirm struct{}

func (NeverConfirm) RequiresConfirmation([]event.ActionPayload) bool { return false }

// AlwaysConfirm suspends whenever there is at least one pending action.
type AlwaysConfirm struct{}

func (AlwaysConfirm) RequiresConfirmation(actions []event.ActionPayload) bool {
	return len(actions) > 0
}

// RiskyPredicate reports whether a single action is risky enough to
// require confirmation.
type RiskyPredicate func(event.ActionPayload) bool

// riskyPolicy suspends only when at least one pending action matches its
// predicate, letting callers confirm only, say, writes or shell commands.
type riskyPolicy struct {
	predicate RiskyPredicate
}

// ConfirmRisky builds a Policy that requires confirmation only for
// actions the given predicate flags as risky.
func ConfirmRisky(predicate RiskyPredicate) Policy {
	return riskyPolicy{predicate: predicate}
}

func (p riskyPolicy) RequiresConfirmation(actions []event.ActionPayload) bool {
	for _, a := range actions {
		if p.predicate(a) {
			return true
		}
	}
	return false
}

var (
	_ Policy = NeverConfirm{}
	_ Policy = AlwaysConfirm{}
	_ Policy = riskyPolicy{}
)
