package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/api/handlers"
	"github.com/eshaffer321/ledger-reconcile/internal/api/middleware"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	// MaxUploadBytes caps the request body of file uploads.
	MaxUploadBytes     int64
	RequireDescription bool
	Export             export.Options
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		MaxUploadBytes: 16 << 20,
		Export:         export.DefaultOptions(),
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	sessions   handlers.Sessions
}

// NewServer creates a new API server over a session store.
func NewServer(cfg Config, sessions handlers.Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		logger:   logger,
		sessions: sessions,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.sessions)
	s.router.Get("/health", healthHandler.ServeHTTP)

	sessionsHandler := handlers.NewSessionsHandler(s.sessions, handlers.UploadOptions{
		MaxBytes:           s.config.MaxUploadBytes,
		RequireDescription: s.config.RequireDescription,
	}, s.logger)
	groupsHandler := handlers.NewGroupsHandler(s.sessions, s.logger)
	exportHandler := handlers.NewExportHandler(s.sessions, s.config.Export, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", sessionsHandler.Analyze)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionsHandler.Create)
			r.Get("/", sessionsHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionsHandler.Get)
				r.Delete("/", sessionsHandler.Delete)
				r.Post("/run", sessionsHandler.Run)

				r.Get("/groups", groupsHandler.List)
				r.Delete("/groups/{groupID}", groupsHandler.Dissolve)
				r.Post("/confirm", groupsHandler.Confirm)
				r.Get("/review", groupsHandler.Review)
				r.Get("/transactions/{txID}/suggestions", groupsHandler.Suggestions)
				r.Get("/summary", groupsHandler.Summary)

				r.Get("/export", exportHandler.Export)
			})
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
