package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// SQLStore persists events to a SQL database, grounded in teacher's
// v2/session/store.go SQLSessionService (sequence_num-ordered rows keyed
// by conversation, upsert-based schema creation), trimmed from that
// file's full session/state/multi-tenant schema down to the single
// events table this package's Store interface needs. The default driver
// is modernc.org/sqlite (pure Go, no cgo), the same driver the pack's
// sacenox-symb and haasonsaas-nexus repos depend on.
type SQLStore struct {
	db *sql.DB

	mu          sync.Mutex
	subscribers map[string]map[int]Subscriber
	nextSubID   int
}

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	conversation_id TEXT NOT NULL,
	sequence_num    INTEGER NOT NULL,
	payload_json    TEXT NOT NULL,
	PRIMARY KEY (conversation_id, sequence_num)
)`

// OpenSQLStore opens (creating if necessary) a sqlite database at path
// and ensures the events table exists. Pass ":memory:" for an ephemeral
// database.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open sqlite: %w", err)
	}
	if _, err := db.Exec(createEventsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventstore: create schema: %w", err)
	}
	return &SQLStore{db: db, subscribers: make(map[string]map[int]Subscriber)}, nil
}

func (s *SQLStore) Append(ctx context.Context, conversationID string, ev event.Event) (int, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("eventstore: marshal event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("eventstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE conversation_id = ?`, conversationID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("eventstore: count existing events: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (conversation_id, sequence_num, payload_json) VALUES (?, ?, ?)`,
		conversationID, count, string(data),
	); err != nil {
		return 0, fmt.Errorf("eventstore: insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("eventstore: commit: %w", err)
	}

	s.mu.Lock()
	subs := make([]Subscriber, 0, len(s.subscribers[conversationID]))
	for _, fn := range s.subscribers[conversationID] {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}

	return count, nil
}

func (s *SQLStore) Range(ctx context.Context, conversationID string, from, to int) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload_json FROM events WHERE conversation_id = ? AND sequence_num >= ? AND sequence_num < ?
		 ORDER BY sequence_num ASC`, conversationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("eventstore: range query: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("eventstore: scan row: %w", err)
		}
		var ev event.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("eventstore: unmarshal row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLStore) Subscribe(conversationID string, fn Subscriber) func() {
	s.mu.Lock()
	if s.subscribers[conversationID] == nil {
		s.subscribers[conversationID] = make(map[int]Subscriber)
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[conversationID][id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers[conversationID], id)
		s.mu.Unlock()
	}
}

// Snapshot is a no-op: every Append already commits durably, so there is
// no additional state to flush.
func (s *SQLStore) Snapshot(ctx context.Context, conversationID string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("eventstore: snapshot count: %w", err)
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Restore is a no-op: rows are already durable and queried directly by
// Range/Append, so there is nothing to load into process memory.
func (s *SQLStore) Restore(ctx context.Context, conversationID string) error {
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
