// Package server exposes the chat pipeline over HTTP: a WebSocket chat
// endpoint plus a small JSON API for sessions, properties and prompt
// templates.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ymatsuda/machichat/internal/chat"
	"github.com/ymatsuda/machichat/internal/config"
	"github.com/ymatsuda/machichat/internal/property"
	"github.com/ymatsuda/machichat/internal/store"
)

// Server is the machichat HTTP server.
type Server struct {
	cfg        config.ServerConfig
	pipeline   *chat.Pipeline
	store      *store.Store
	properties *property.Service
	templates  *chat.TemplateStore
	router     chi.Router
	httpServer *http.Server
}

// New wires the server from its collaborators.
func New(cfg config.ServerConfig, pipeline *chat.Pipeline, st *store.Store, props *property.Service, templates *chat.TemplateStore) *Server {
	s := &Server{
		cfg:        cfg,
		pipeline:   pipeline,
		store:      st,
		properties: props,
		templates:  templates,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/ws/chat", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}/history", s.handleGetHistory)
		r.Get("/sessions/{id}/history.csv", s.handleExportHistory)
		r.Delete("/sessions/{id}/history", s.handleClearHistory)

		r.Get("/properties", s.handleListProperties)

		r.Get("/templates", s.handleListTemplates)
		r.Put("/templates/{name}", s.handlePutTemplate)
		r.Delete("/templates/{name}", s.handleDeleteTemplate)
	})

	return r
}

// Router returns the chi router, mostly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("machichat server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
