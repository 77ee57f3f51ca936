package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kadirpekel/hector-core/pkg/conversation"
	"github.com/kadirpekel/hector-core/pkg/event"
	"github.com/kadirpekel/hector-core/pkg/eventstore"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// conversationState satisfies tool.ConversationState before a
// *conversation.Conversation exists, so tools can be resolved and handed
// to conversation.Config.Tools at construction time.
type conversationState struct {
	id        string
	workspace string
}

func newConversationState(id, workspace string) conversationState {
	return conversationState{id: id, workspace: workspace}
}

func (c conversationState) WorkspacePath() string  { return c.workspace }
func (c conversationState) ConversationID() string { return c.id }

type createConversationRequest struct {
	Agent               string `json:"agent"`
	Workspace           string `json:"workspace"`
	ConfirmationPolicy  string `json:"confirmation_policy,omitempty"`
	InitialMessage      string `json:"initial_message,omitempty"`
	MaxIterations       int    `json:"max_iterations,omitempty"`
	StuckDetectionWindow int   `json:"stuck_detection,omitempty"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	State          string `json:"state"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
		return
	}
	if req.Agent == "" {
		writeError(w, http.StatusBadRequest, "agent is required")
		return
	}

	gw, ok := s.deps.Gateways.Get(req.Agent)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown agent service_id %q", req.Agent)
		return
	}

	id := uuid.NewString()

	policy, err := parseConfirmationPolicy(req.ConfirmationPolicy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	var tools []tool.Definition
	if s.deps.Tools != nil {
		defs, err := s.deps.Tools.Resolve(newConversationState(id, req.Workspace), s.deps.Tools.Names())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "resolve tools: %v", err)
			return
		}
		tools = defs
	}

	conv, err := conversation.New(conversation.Config{
		ID:            id,
		WorkspacePath: req.Workspace,
		Gateway:       gw,
		Condenser:     resolveCondenser(gw, gw.Metrics().ModelName, 0),
		Tools:         tools,
		Confirmation:  policy,
		MaxIterations: req.MaxIterations,
		Store:         s.deps.Store,
		StuckWindow:   req.StuckDetectionWindow,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "create conversation: %v", err)
		return
	}

	if req.InitialMessage != "" {
		msg := event.NewMessage(event.RoleUser, []event.ContentPart{event.TextPart(req.InitialMessage)})
		if err := conv.Append(r.Context(), event.NewMessageEvent(event.SourceUser, msg)); err != nil {
			writeError(w, http.StatusInternalServerError, "append initial message: %v", err)
			return
		}
	}

	s.registry.add(id, req.Agent, req.Workspace, conv)
	writeJSON(w, http.StatusCreated, createConversationResponse{ConversationID: id, State: string(conv.Status())})
}

func parseConfirmationPolicy(name string) (conversation.Policy, error) {
	switch name {
	case "", "never":
		return conversation.NeverConfirm{}, nil
	case "always":
		return conversation.AlwaysConfirm{}, nil
	default:
		return nil, errors.New("confirmation_policy must be \"never\" or \"always\"")
	}
}

func (s *Server) lookupConversation(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, bool) {
	id := chi.URLParam(r, "id")
	e, ok := s.registry.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation %q not found", id)
		return nil, false
	}
	return e.conv, true
}

type postMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
		return
	}
	role := event.RoleUser
	if req.Role != "" {
		role = event.Role(req.Role)
	}

	msg := event.NewMessage(role, []event.ContentPart{event.TextPart(req.Content)})
	if err := conv.Append(r.Context(), event.NewMessageEvent(event.SourceUser, msg)); err != nil {
		writeError(w, http.StatusInternalServerError, "append message: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(conv.Status())})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}

	if err := conv.Run(r.Context()); err != nil {
		if errors.Is(err, conversation.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "conversation already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "run: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(conv.Status())})
}

type confirmRequest struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
		return
	}

	if err := conv.RespondToConfirmation(r.Context(), req.Accept, req.Reason); err != nil {
		if errors.Is(err, conversation.ErrNotWaitingForConfirmation) {
			writeError(w, http.StatusBadRequest, "conversation is not waiting for confirmation")
			return
		}
		if errors.Is(err, conversation.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "conversation already running")
			return
		}
		writeError(w, http.StatusInternalServerError, "confirm: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(conv.Status())})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}
	conv.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": string(conv.Status())})
}

type eventsResponse struct {
	Events []event.Event `json:"events"`
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.registry.get(id); !ok {
		writeError(w, http.StatusNotFound, "conversation %q not found", id)
		return
	}

	from := 0
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid from parameter")
			return
		}
		from = n
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}
	order := r.URL.Query().Get("order")
	if order == "" {
		order = "TIMESTAMP"
	}
	if order != "TIMESTAMP" && order != "TIMESTAMP_DESC" {
		writeError(w, http.StatusBadRequest, "order must be TIMESTAMP or TIMESTAMP_DESC")
		return
	}

	events, err := s.deps.Store.Range(r.Context(), id, from, from+limit)
	if err != nil {
		if errors.Is(err, eventstore.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation %q not found", id)
			return
		}
		writeError(w, http.StatusInternalServerError, "range events: %v", err)
		return
	}

	if order == "TIMESTAMP_DESC" {
		for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
			events[i], events[j] = events[j], events[i]
		}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	sortKey := r.URL.Query().Get("sort")
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page parameter")
			return
		}
		page = n
	}

	items := s.registry.list(sortKey, page, 20)
	writeJSON(w, http.StatusOK, map[string]any{"conversations": items, "page": page})
}

type secretsRequest struct {
	Secrets map[string]string `json:"secrets"`
}

// handlePutSecrets re-injects secret values into the LLM config backing
// this conversation's agent, by service_id, in the process-wide config
// registry. It never stores secret values on the conversation itself -
// they flow straight into the already-redacted LLMConfig the Gateway was
// built from, matching the persisted-config re-injection spec.md §6.2
// describes for the filesystem backend.
func (s *Server) handlePutSecrets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	e, ok := s.registry.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation %q not found", id)
		return
	}

	var req secretsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
		return
	}
	if s.deps.Secrets == nil {
		writeError(w, http.StatusInternalServerError, "no secret registry configured")
		return
	}

	if err := s.deps.Secrets.ReinjectSecrets(e.agent, req.Secrets); err != nil {
		writeError(w, http.StatusBadRequest, "reinject secrets: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type confirmationPolicyRequest struct {
	Policy string `json:"policy"`
}

func (s *Server) handlePutConfirmationPolicy(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r)
	if !ok {
		return
	}

	var req confirmationPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: %v", err)
		return
	}
	policy, err := parseConfirmationPolicy(req.Policy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	conv.SetConfirmationPolicy(policy)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
