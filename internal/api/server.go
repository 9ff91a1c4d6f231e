// Package api provides the HTTP surface over the group directory and
// the activity aggregator.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blockedby/grouppulse/internal/logger"
)

// Config holds HTTP server configuration.
type Config struct {
	Port           int
	FetchLimit     int // messages fetched per stats request
	RequestsPerMin int // per-ip rate limit
}

// Dependencies contains all service dependencies.
type Dependencies struct {
	Directory GroupDirectory
	Fetcher   MessageFetcher
	Session   SessionState
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	deps       *Dependencies
	listener   net.Listener
	log        *logger.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		log:    logger.Get(),
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(recoverer(s.log))
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders: []string{"x-auth"},
	}))
	if s.config.RequestsPerMin > 0 {
		s.router.Use(newIPRateLimiter(s.config.RequestsPerMin).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.root)
	s.router.Get("/health", s.health)

	// data routes are gated on session readiness
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Get("/groups", s.listGroups)
		r.Get("/group/{id}/stats", s.groupStats)
	})

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router returns the http handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // client disconnected
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
