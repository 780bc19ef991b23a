// Package server exposes the favorites, search history, user and player APIs
// over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// [BasicRouter] uses [http.ServeMux] internally with method filtering.
//
// # Handlers
//
// Each endpoint group implements [Handler]: it serves every route returned by
// Routes and answers CORS preflight requests with the methods it accepts.
//
// # Player stream
//
// /api/player/ws upgrades to a websocket and pushes a playback state snapshot
// on every controller state change.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jscyril/vibestream/internal/shared"
	"github.com/jscyril/vibestream/internal/store"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler serves a group of related endpoints
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
	Methods() []string
}

// Router defines HTTP routing and middleware management
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// NewAPI builds the router for every API the server offers. A nil store or
// player leaves the corresponding endpoints unregistered.
func NewAPI(st store.Store, p Player, logger *log.Logger) *BasicRouter {
	if logger == nil {
		logger = shared.Discard()
	}

	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger), CORS())

	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))

	if st != nil {
		r.Handler(NewFavoritesHandler(st, logger))
		r.Handler(NewHistoryHandler(st, logger))
		r.Handler(NewUsersHandler(st, logger))
	}
	if p != nil {
		r.Handler(NewPlayerHandler(p, logger))
	}
	return r
}

// Server wraps [http.Server] with start and graceful shutdown
type Server struct {
	srv    *http.Server
	logger *log.Logger
}

// New creates a server listening on addr
func New(addr string, handler http.Handler, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.Discard()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start listens and serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.srv.Shutdown(ctx)
}
