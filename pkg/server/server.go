// Package server exposes the conversation runtime over the HTTP surface
// spec.md §6 defines: create/drive conversations, paginate their event
// logs, and list the conversations a process is currently hosting.
// Grounded in teacher's pkg/transport (the one chi-based file in the
// teacher's tree) for the metrics/tracing middleware shape, and in
// teacher's pkg/server/{http,server}.go for general request-lifecycle
// conventions - teacher's own route table is A2A/gRPC-centric and has no
// direct chi equivalent to adapt line-by-line.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/hector-core/pkg/auth"
	"github.com/kadirpekel/hector-core/pkg/config"
	"github.com/kadirpekel/hector-core/pkg/condenser"
	"github.com/kadirpekel/hector-core/pkg/conversation"
	"github.com/kadirpekel/hector-core/pkg/eventstore"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/observability"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// GatewayResolver resolves a configured LLM service_id to a ready
// *llm.Gateway. *llm.ServiceRegistry satisfies this directly.
type GatewayResolver interface {
	Get(serviceID string) (*llm.Gateway, bool)
}

// Deps are the runtime collaborators a Server routes requests to.
// Observability and Auth may be nil to run without metrics/tracing or
// authentication respectively; Tools may be nil, in which case no tool
// definitions are attached to new conversations.
type Deps struct {
	Gateways      GatewayResolver
	Tools         *tool.Registry
	Store         eventstore.Store
	Secrets       *config.Registry
	Observability *observability.Manager
	Auth          *auth.JWTValidator
	Config        config.ServerConfig
}

// Server wires the conversation runtime to an HTTP router.
type Server struct {
	deps     Deps
	registry *conversationRegistry
	router   chi.Router
	httpSrv  *http.Server
}

// New builds a Server and registers every route. Call Router to get the
// http.Handler, or Start/Shutdown for the full listen lifecycle.
func New(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		registry: newConversationRegistry(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observabilityMiddleware)

	if s.deps.Auth != nil {
		excluded := []string{"/health"}
		if s.deps.Config.Auth != nil {
			excluded = s.deps.Config.Auth.ExcludedPaths
		}
		r.Use(s.deps.Auth.HTTPMiddleware(excluded))
	}

	r.Get("/health", s.handleHealth)
	if s.deps.Observability != nil {
		r.Get(s.deps.Observability.MetricsEndpoint(), s.handleMetrics)
	}

	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", s.handleCreateConversation)
		r.Get("/", s.handleListConversations)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/messages", s.handlePostMessage)
			r.Post("/run", s.handleRun)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/pause", s.handlePause)
			r.Get("/events", s.handleGetEvents)
			r.Put("/secrets", s.handlePutSecrets)
			r.Put("/confirmation-policy", s.handlePutConfirmationPolicy)
		})
	})

	return r
}

// Router returns the http.Handler serving every registered route.
func (s *Server) Router() http.Handler { return s.router }

// Start begins listening on deps.Config.Address() in a background
// goroutine. Call Shutdown to stop it gracefully.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.deps.Config.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln := s.httpSrv.Addr
	slog.Info("server: listening", "addr", ln)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully drains in-flight requests and shuts down
// observability, if configured. It does not close tracked conversations
// or the event store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
	}
	if s.deps.Observability != nil {
		return s.deps.Observability.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.deps.Observability.MetricsHandler().ServeHTTP(w, r)
}

// resolveCondenser builds the default token-threshold condenser for a
// new conversation's gateway, falling back to a no-op condenser if the
// conversation has no configured context window.
func resolveCondenser(gw *llm.Gateway, model string, contextWindow int) condenser.Condenser {
	if contextWindow <= 0 {
		return condenser.NoOpCondenser{}
	}
	c, err := condenser.New(condenser.Config{
		Strategy:   "token_threshold",
		Model:      model,
		Summarizer: condenser.NewGatewaySummarizer(gw, defaultSummarizeChunkSize),
	})
	if err != nil {
		return condenser.NoOpCondenser{}
	}
	return c
}

const defaultSummarizeChunkSize = 4000

var _ tool.ConversationState = (*conversation.Conversation)(nil)
