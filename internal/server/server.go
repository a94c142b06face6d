package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/knowledge"
)

// DefaultQueryTimeout bounds a single question over HTTP.
const DefaultQueryTimeout = 120 * time.Second

// KnowledgeBase is the orchestrator API served over HTTP.
type KnowledgeBase interface {
	Initialize(ctx context.Context, force bool) (*knowledge.IngestReport, error)
	Query(ctx context.Context, question string) (*answer.Answer, error)
	ListDocuments(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (*knowledge.Status, error)
}

// Config holds server configuration.
type Config struct {
	Port         int
	AllowAll     bool // allow all CORS origins (dev mode)
	QueryTimeout time.Duration
}

// Server exposes the knowledge base over HTTP and WebSocket.
type Server struct {
	cfg        Config
	kb         KnowledgeBase
	router     chi.Router
	httpServer *http.Server
}

// New creates a new server for kb.
func New(cfg Config, kb KnowledgeBase) *Server {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	s := &Server{cfg: cfg, kb: kb}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	// The same API is served at the root and under /api.
	s.routes(r)
	r.Route("/api", s.routes)

	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/documents", s.handleDocuments)
	// Ingestion may run for minutes; it is not subject to the request timeout.
	r.Post("/initialize", s.handleInitialize)
	r.With(middleware.Timeout(s.cfg.QueryTimeout)).Post("/query", s.handleQuery)
	r.Get("/ws/chat", s.handleWebSocket)
}

// Router returns the chi router.
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

	log.Info().Str("component", "server").Str("addr", addr).Msg("regqa server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
