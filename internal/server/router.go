package server

import (
	"net/http"
	"strings"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the stack, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for a single HTTP method and path.
//
// The handler is wrapped with all registered middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, r.Apply(AllowMethods(method)(handler)))
}

// Handler registers a [Handler] implementation on each of its routes.
//
// Requests using a method outside [Handler.Methods] are rejected before the
// handler runs; OPTIONS preflights are answered directly.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(AllowMethods(handler.Methods()...)(handler))

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

// AllowMethods advertises methods for CORS, answers OPTIONS with 200 and
// rejects anything else with 405.
func AllowMethods(methods ...string) Middleware {
	allowed := append([]string{}, methods...)
	allowed = append(allowed, http.MethodOptions)
	header := strings.Join(allowed, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Methods", header)

			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			for _, m := range methods {
				if strings.EqualFold(req.Method, m) {
					next.ServeHTTP(w, req)
					return
				}
			}
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	}
}
