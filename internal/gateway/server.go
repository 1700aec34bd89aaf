// Package gateway serves authoring sessions over HTTP and WebSocket. Each
// session owns an isolated selector collection and draft.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/dbtsel/internal/events"
	"github.com/dohr-michael/dbtsel/internal/gateway/ws"
	"github.com/dohr-michael/dbtsel/internal/selectors"
)

// Server is the dbtsel gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	registry   *Registry
	indent     int

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new gateway server. indent is used for rendered
// selectors.yml documents.
func NewServer(bus *events.Bus, registry *Registry, host string, port int, indent int) *Server {
	if indent <= 0 {
		indent = selectors.DefaultIndent
	}
	s := &Server{
		bus:      bus,
		registry: registry,
		indent:   indent,
	}
	s.hub = ws.NewHub(bus, s.handleRequest)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/events", s.handleEvents)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(s.sessionCtx)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/ws", s.handleWS)

			r.Get("/selectors", s.handleListSelectors)
			r.Post("/selectors", s.handleAddSelector)
			r.Delete("/selectors/{index}", s.handleRemoveSelector)
			r.Get("/selectors.yml", s.handleDownload)
			r.Post("/reset", s.handleReset)

			r.Get("/draft", s.handleGetDraft)
			r.Delete("/draft", s.handleDiscardDraft)
			r.Put("/draft/meta", s.handleDraftMeta)
			r.Put("/draft/definition", s.handleDraftDefinition)
			r.Post("/draft/finalize", s.handleFinalize)
		})
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	slog.Info("dbtsel gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Addr returns the listening address once Start has bound it, or the
// configured address before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != nil {
		return s.addr.String()
	}
	return s.httpServer.Addr
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	return s.registry.Len()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// sessionCtx rejects unknown session ids and stores the id in the request
// context.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !s.registry.Exists(id) {
			writeError(w, ErrSessionNotFound, http.StatusNotFound)
			return
		}
		ctx := events.ContextWithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeSession(w, r, events.SessionIDFromContext(r.Context()))
}

// publish emits payload for the session and source carried by ctx.
func (s *Server) publish(ctx context.Context, payload events.EventPayload) {
	s.bus.Publish(events.NewContextEvent(ctx, events.SourceGateway, payload))
}
