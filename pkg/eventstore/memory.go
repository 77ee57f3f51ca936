package eventstore

import (
	"context"
	"sync"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// memoryLog is one conversation's append-only event slice plus its
// subscribers, guarded by its own lock - mirrors teacher's
// memorySession/memoryEvents split (session.go), generalized from a
// session's mixed state+events to a pure event log.
type memoryLog struct {
	mu          sync.RWMutex
	events      []event.Event
	subscribers map[int]Subscriber
	nextSubID   int
}

// MemoryStore is the default, non-durable Store backend: everything lives
// in process memory, keyed by conversation id.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*memoryLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]*memoryLog)}
}

func (s *MemoryStore) logFor(conversationID string) *memoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[conversationID]
	if !ok {
		l = &memoryLog{subscribers: make(map[int]Subscriber)}
		s.logs[conversationID] = l
	}
	return l
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, ev event.Event) (int, error) {
	l := s.logFor(conversationID)

	l.mu.Lock()
	seq := len(l.events)
	l.events = append(l.events, ev)
	subs := make([]Subscriber, 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	// Delivered synchronously after the lock is released: a slow
	// subscriber delays the Append call that produced the event, but
	// never blocks other goroutines appending or reading.
	for _, fn := range subs {
		fn(ev)
	}

	return seq, nil
}

func (s *MemoryStore) Range(ctx context.Context, conversationID string, from, to int) ([]event.Event, error) {
	s.mu.RLock()
	l, ok := s.logs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrConversationNotFound
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if to > len(l.events) {
		to = len(l.events)
	}
	if from >= to {
		return nil, nil
	}
	out := make([]event.Event, to-from)
	copy(out, l.events[from:to])
	return out, nil
}

func (s *MemoryStore) Subscribe(conversationID string, fn Subscriber) func() {
	l := s.logFor(conversationID)

	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subscribers, id)
		l.mu.Unlock()
	}
}

// Snapshot is a no-op for MemoryStore: the log is always fully resident,
// so there is nothing additional to persist.
func (s *MemoryStore) Snapshot(ctx context.Context, conversationID string) error {
	s.mu.RLock()
	_, ok := s.logs[conversationID]
	s.mu.RUnlock()
	if !ok {
		return ErrConversationNotFound
	}
	return nil
}

// Restore is a no-op for MemoryStore: there is no external durable form
// to load from.
func (s *MemoryStore) Restore(ctx context.Context, conversationID string) error {
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
