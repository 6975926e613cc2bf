// Package server provides the HTTP server setup and routing configuration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rusel95/whitenoise/internal/api"
	"github.com/rusel95/whitenoise/internal/config"
	"github.com/rusel95/whitenoise/internal/db"
	"github.com/rusel95/whitenoise/internal/logger"
	"github.com/rusel95/whitenoise/internal/middleware"
	"github.com/rusel95/whitenoise/internal/player"
)

// Server represents the HTTP server
type Server struct {
	config *config.Config
	db     *db.DB
	engine *player.Engine
	router *gin.Engine
	server *http.Server
}

// New creates a new server instance around an already-constructed player
// engine. The engine's lifecycle is owned here: Start boots it before the
// listener, Shutdown stops it after the listener drains.
func New(cfg *config.Config, database *db.DB, engine *player.Engine) *Server {
	return &Server{
		config: cfg,
		db:     database,
		engine: engine,
	}
}

// setupRouter initializes the Gin router with middleware and routes
func (s *Server) setupRouter() {
	// Set Gin mode based on log level
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	// Add middleware stack
	s.router.Use(middleware.RequestLogger()) // Custom zerolog request logger
	s.router.Use(gin.Recovery())             // Panic recovery
	s.router.Use(cors.Default())             // CORS support (allows all origins)

	apiGroup := s.router.Group("/api")

	api.SetupHealthRoutes(apiGroup, s.db, s.engine)
	api.SetupPlayerRoutes(apiGroup, s.engine, s.config.Timer.PresetMinutes)
	api.SetupStreamRoutes(apiGroup, s.engine)
}

// Start starts the player engine and the HTTP server
func (s *Server) Start() error {
	s.setupRouter()

	if err := s.engine.Start(); err != nil {
		return fmt.Errorf("failed to start player engine: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	logger.Log.Info().
		Str("host", s.config.Server.Host).
		Int("port", s.config.Server.Port).
		Msg("Starting HTTP server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info().Msg("Shutting down server gracefully")

	// Check if server was started before attempting shutdown
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	// Stop the engine last so websocket subscribers see the final snapshot
	// before their connections drop.
	if s.engine != nil {
		s.engine.Stop()
	}

	logger.Log.Info().Msg("Server stopped")
	return nil
}
