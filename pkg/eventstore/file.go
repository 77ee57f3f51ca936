package eventstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kadirpekel/hector-core/pkg/event"
)

// FileStore persists each conversation's events to
// <baseDir>/.conversations/<id>/events.ndjson (one JSON event per line,
// appended then fsync'd for crash-atomic per-event durability) and
// snapshots the full log to <id>/state.json via write-then-fsync-then-
// rename, matching spec §6.2's persistence layout. Grounded in teacher's
// pkg/checkpoint/storage.go crash-atomic intent, generalized from
// session-state-keyed checkpoints to a flat per-conversation event file,
// plus the write-temp-then-rename idiom standard to Go file persistence.
type FileStore struct {
	baseDir string

	mu    sync.Mutex
	files map[string]*fileLog
}

type fileLog struct {
	mu          sync.RWMutex
	events      []event.Event
	subscribers map[int]Subscriber
	nextSubID   int
	appendFile  *os.File
}

// NewFileStore creates a store rooted at baseDir. baseDir is created if
// missing.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("eventstore: create base dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, files: make(map[string]*fileLog)}, nil
}

func (s *FileStore) conversationDir(conversationID string) string {
	return filepath.Join(s.baseDir, ".conversations", conversationID)
}

func (s *FileStore) eventsPath(conversationID string) string {
	return filepath.Join(s.conversationDir(conversationID), "events.ndjson")
}

func (s *FileStore) statePath(conversationID string) string {
	return filepath.Join(s.conversationDir(conversationID), "state.json")
}

func (s *FileStore) logFor(conversationID string) (*fileLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.files[conversationID]; ok {
		return l, nil
	}

	dir := s.conversationDir(conversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventstore: create conversation dir: %w", err)
	}

	f, err := os.OpenFile(s.eventsPath(conversationID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open events log: %w", err)
	}

	l := &fileLog{subscribers: make(map[int]Subscriber), appendFile: f}
	s.files[conversationID] = l
	return l, nil
}

func (s *FileStore) Append(ctx context.Context, conversationID string, ev event.Event) (int, error) {
	l, err := s.logFor(conversationID)
	if err != nil {
		return 0, err
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("eventstore: marshal event: %w", err)
	}

	l.mu.Lock()
	if _, err := l.appendFile.Write(append(line, '\n')); err != nil {
		l.mu.Unlock()
		return 0, fmt.Errorf("eventstore: append: %w", err)
	}
	if err := l.appendFile.Sync(); err != nil {
		l.mu.Unlock()
		return 0, fmt.Errorf("eventstore: fsync: %w", err)
	}
	seq := len(l.events)
	l.events = append(l.events, ev)
	subs := make([]Subscriber, 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return seq, nil
}

func (s *FileStore) Range(ctx context.Context, conversationID string, from, to int) ([]event.Event, error) {
	s.mu.Lock()
	l, ok := s.files[conversationID]
	s.mu.Unlock()
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

func (s *FileStore) Subscribe(conversationID string, fn Subscriber) func() {
	l, err := s.logFor(conversationID)
	if err != nil {
		return func() {}
	}

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

// Snapshot writes the full event log to state.json via a temp-file-then-
// rename, so a crash mid-write never leaves a corrupt state.json: the
// rename is the only operation that can be observed as "done".
func (s *FileStore) Snapshot(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	l, ok := s.files[conversationID]
	s.mu.Unlock()
	if !ok {
		return ErrConversationNotFound
	}

	l.mu.RLock()
	events := make([]event.Event, len(l.events))
	copy(events, l.events)
	l.mu.RUnlock()

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("eventstore: marshal snapshot: %w", err)
	}

	dir := s.conversationDir(conversationID)
	tmp, err := os.CreateTemp(dir, "state-*.json.tmp")
	if err != nil {
		return fmt.Errorf("eventstore: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("eventstore: write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("eventstore: fsync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("eventstore: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.statePath(conversationID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("eventstore: rename snapshot into place: %w", err)
	}
	return nil
}

// Restore loads conversationID's events from state.json if present,
// falling back to replaying events.ndjson line by line (the snapshot is
// an optimization, not the source of truth: the ndjson log is append-
// only and always complete as of its last fsync).
func (s *FileStore) Restore(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if _, ok := s.files[conversationID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("eventstore: conversation %q already loaded", conversationID)
	}
	s.mu.Unlock()

	events, err := s.loadFromSnapshot(conversationID)
	if err != nil {
		events, err = s.loadFromNDJSON(conversationID)
		if err != nil {
			return err
		}
	}

	l, err := s.logFor(conversationID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.events = events
	l.mu.Unlock()
	return nil
}

func (s *FileStore) loadFromSnapshot(conversationID string) ([]event.Event, error) {
	data, err := os.ReadFile(s.statePath(conversationID))
	if err != nil {
		return nil, err
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *FileStore) loadFromNDJSON(conversationID string) ([]event.Event, error) {
	f, err := os.Open(s.eventsPath(conversationID))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []event.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// A partially-written trailing line from a crash is tolerated:
			// stop replay here rather than failing the whole restore.
			break
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, l := range s.files {
		if err := l.appendFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Store = (*FileStore)(nil)
