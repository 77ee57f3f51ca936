// Package eventstore is the append-only, per-conversation event log:
// in-order, indexed by (conversation_id, sequence_number), with a
// pluggable durability backend. Grounded in teacher's
// pkg/session/session.go (in-memory store keyed by id, RWMutex-guarded)
// and pkg/checkpoint/storage.go (crash-atomic file persistence),
// generalized from session/checkpoint-specific state into a flat event
// log.
package eventstore

import (
	"context"
	"errors"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// ErrConversationNotFound is returned by Range/Snapshot when no events
// have ever been appended for the given conversation id (the SQL
// backend's Range returns an empty result instead).
var ErrConversationNotFound = errors.New("eventstore: conversation not found")

// Subscriber receives events appended to a conversation after it
// subscribed. Callbacks run synchronously on the goroutine that called
// Append, after the store's lock is released; Append returns only once
// every subscriber has returned, so a slow subscriber delays Append.
type Subscriber func(event.Event)

// Store is the Event Store contract (spec §4.5): append, range-read,
// subscribe, and snapshot/restore, with total order per conversation and
// crash-atomic per-event durability.
type Store interface {
	// Append adds ev to conversationID's log and returns its zero-based
	// sequence number. Appends for a single conversation are totally
	// ordered; the store serializes them internally.
	Append(ctx context.Context, conversationID string, ev event.Event) (sequenceNumber int, err error)

	// Range returns events [from, to) for conversationID. to may exceed
	// the log length; the result is simply truncated.
	Range(ctx context.Context, conversationID string, from, to int) ([]event.Event, error)

	// Subscribe registers fn to be invoked, in append order, for every
	// event appended to conversationID from this call onward. The
	// returned func unsubscribes; it is safe to call more than once.
	Subscribe(conversationID string, fn Subscriber) (unsubscribe func())

	// Snapshot serializes the full current state of conversationID (its
	// complete event log) to an opaque durable form. The filesystem
	// backend writes state.json; the memory and SQL backends only check
	// that the conversation exists.
	Snapshot(ctx context.Context, conversationID string) error

	// Restore loads a previously persisted conversation's event log,
	// making it available to Range/Subscribe/further Append calls. The
	// filesystem backend returns an error if the id is already loaded in
	// this process; the memory and SQL backends return nil for any id.
	Restore(ctx context.Context, conversationID string) error

	// Close releases backend resources (open files, DB handles). Safe to
	// call more than once.
	Close() error
}
