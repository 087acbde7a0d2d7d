// Package http exposes the ingestion and chat services over a JSON API.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-core/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	ingestService driving.IngestService
	chatService   driving.ChatService
	docService    driving.DocumentService
	services      *runtime.Services

	// Infrastructure
	vectorStore       driven.VectorStore
	conversationStore driven.ConversationStore // optional
	db                Pinger                   // optional PostgreSQL health check
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// RateLimit is requests per second per client. Zero disables limiting.
	RateLimit float64

	// RateBurst is the per-client burst allowance.
	RateBurst int

	// AllowedOrigins for CORS. Empty disables CORS headers.
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:      "0.0.0.0",
		Port:      8080,
		Version:   "dev",
		RateLimit: 10,
		RateBurst: 20,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ingestService driving.IngestService,
	chatService driving.ChatService,
	docService driving.DocumentService,
	services *runtime.Services,
	vectorStore driven.VectorStore,
	conversationStore driven.ConversationStore, // can be nil
	db Pinger, // can be nil
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		ingestService:     ingestService,
		chatService:       chatService,
		docService:        docService,
		services:          services,
		vectorStore:       vectorStore,
		conversationStore: conversationStore,
		db:                db,
	}

	var handler http.Handler = s.router
	if cfg.RateLimit > 0 {
		handler = NewRateLimitMiddleware(cfg.RateLimit, cfg.RateBurst).Handler(handler)
	}
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware().Handler(handler)
	handler = NewRecoveryMiddleware().Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // completions can be slow
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /health/detailed", s.handleHealthDetailed)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Ingestion
	s.router.HandleFunc("POST /api/v1/upload", s.handleUpload)

	// Chat
	s.router.HandleFunc("POST /api/v1/chat", s.handleChat)

	// Documents
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("GET /api/v1/documents/{id}/chunks", s.handleGetDocumentChunks)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)

	// Sessions
	s.router.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleClearSession)
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
