// Package server wires the HTTP surface of the ORA memory service.
//
// This is the composition root: it selects the storage backend from
// configuration, builds the memory service, and registers routes and
// middleware. No business logic lives here, only wiring and the thin
// translation between HTTP and the memory core.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/oralabs/ora-memory/internal/config"
	"github.com/oralabs/ora-memory/internal/memory"
)

// Version is set at build time via ldflags.
var Version = "dev"

const serviceName = "ORA Memory API"

// Server is the HTTP front of the memory service.
type Server struct {
	cfg    *config.Config
	svc    *memory.Service
	router chi.Router
}

// New builds the server from configuration. The returned cleanup
// function closes the storage backend and must be called on shutdown;
// it is always non-nil.
func New(cfg *config.Config) (*Server, func(), error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening %s store: %w", cfg.Storage.Backend, err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("WARNING: store close: %v", err)
		}
	}

	s := newServer(cfg, memory.NewService(store))
	return s, cleanup, nil
}

// newServer assembles routes around an existing service. Split from New
// so tests can inject a service over a temp-dir store.
func newServer(cfg *config.Config, svc *memory.Service) *Server {
	s := &Server{cfg: cfg, svc: svc}
	s.router = s.routes()
	return s
}

func openStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return memory.NewSQLiteStore(cfg.Storage.DataDir)
	default:
		return memory.NewFileStore(cfg.Storage.DataDir, cfg.Storage.Strict)
	}
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the HTTP server on the configured port until the
// context is cancelled, then drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.Printf("%s listening on %s (storage: %s)", serviceName, addr, s.cfg.Storage.Backend)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)
	r.Get("/admin", s.handleAdmin)

	r.Route("/api/memory", func(r chi.Router) {
		r.Post("/get-context", s.handleGetContext)
		r.Post("/save-conversation", s.handleSaveConversation)
		r.Post("/update-profile", s.handleUpdateProfile)
		r.Get("/get-all-users", s.handleGetAllUsers)
		r.Post("/search-conversations", s.handleSearchConversations)
		r.Post("/get-stats", s.handleGetStats)
	})

	return r
}
