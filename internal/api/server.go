// Package api provides the HTTP API server and handlers for novel-audio.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trantuankiet11884/novel-audio/internal/ratelimit"
	"github.com/trantuankiet11884/novel-audio/internal/sse"
)

// Config tunes the HTTP layer.
type Config struct {
	AllowedOrigins []string
	// CommandsPerSecond and CommandBurst bound player commands per user.
	CommandsPerSecond float64
	CommandBurst      int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services       *Services
	sseHandler     *sse.Handler
	sseManager     *sse.Manager
	commandLimiter *ratelimit.Limiter
	router         *chi.Mux
	api            huma.API
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg Config, services *Services, sseHandler *sse.Handler, sseManager *sse.Manager, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services:       services,
		sseHandler:     sseHandler,
		sseManager:     sseManager,
		commandLimiter: ratelimit.New(cfg.CommandsPerSecond, cfg.CommandBurst),
		router:         router,
		logger:         logger,
	}

	s.setupMiddleware(cfg)

	humaConfig := huma.DefaultConfig("novel-audio API", "1.0.0")
	humaConfig.Info.Description = "Chapter text-to-audio player sessions and listening history"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.commandLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", userIDHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerVoiceRoutes()
	s.registerPlayerRoutes()
	s.registerHistoryRoutes()

	// The event stream is long-lived and bypasses huma's response handling.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
}
