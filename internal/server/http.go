// Package server assembles the HTTP API from per-area handlers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RouteRegistrar is implemented by every handler that mounts routes.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Server is the portal's HTTP server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
}

// New builds a server listening on addr. public handlers are mounted on the
// bare router; protected handlers behind the session middleware.
func New(addr string, sessionAuth mux.MiddlewareFunc, public, protected []RouteRegistrar) *Server {
	router := mux.NewRouter()
	for _, h := range public {
		h.RegisterRoutes(router)
	}
	authed := router.PathPrefix("/").Subrouter()
	authed.Use(sessionAuth)
	for _, h := range protected {
		h.RegisterRoutes(authed)
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router: router,
	}
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
