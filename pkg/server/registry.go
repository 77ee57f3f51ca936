package server

import (
	"sort"
	"sync"
	"time"

	"github.com/kadirpekel/hector-core/pkg/conversation"
)

// entry bundles a live Conversation with the bookkeeping the listing
// endpoint needs (agent/workspace aren't otherwise exposed by
// *conversation.Conversation).
type entry struct {
	conv      *conversation.Conversation
	agent     string
	workspace string
	createdAt time.Time
}

// conversationRegistry is the process-wide, in-memory directory of live
// conversations this server instance is driving. One *Server owns one
// registry; it is not itself durable - durability is the Store's job.
type conversationRegistry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func newConversationRegistry() *conversationRegistry {
	return &conversationRegistry{entries: make(map[string]*entry)}
}

func (r *conversationRegistry) add(id, agent, workspace string, conv *conversation.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{conv: conv, agent: agent, workspace: workspace, createdAt: time.Now()}
}

func (r *conversationRegistry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// list returns every entry sorted by sortKey ("created_at" or "id";
// anything else falls back to "created_at"). page is 1-based; a page
// outside the available range returns an empty slice.
func (r *conversationRegistry) list(sortKey string, page, pageSize int) []listItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]listItem, 0, len(r.entries))
	for id, e := range r.entries {
		items = append(items, listItem{
			ID:        id,
			Agent:     e.agent,
			Workspace: e.workspace,
			Status:    string(e.conv.Status()),
			CreatedAt: e.createdAt,
		})
	}

	switch sortKey {
	case "id":
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	default:
		sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []listItem{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type listItem struct {
	ID        string    `json:"conversation_id"`
	Agent     string    `json:"agent"`
	Workspace string    `json:"workspace"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
