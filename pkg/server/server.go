package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundprediction/schemagraph"
	"github.com/soundprediction/schemagraph/pkg/config"
	"github.com/soundprediction/schemagraph/pkg/server/handlers"
	"github.com/soundprediction/schemagraph/pkg/types"
)

// RequestIDHeader carries the request ID in and out of the server.
const RequestIDHeader = "X-Request-ID"

// Backend is what the server needs from a schemagraph client.
type Backend interface {
	schemagraph.Retriever
	schemagraph.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	router  *gin.Engine
	backend Backend
	server  *http.Server
	logger  *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		backend: backend,
		logger:  logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	var (
		retriever schemagraph.Retriever
		checker   schemagraph.HealthChecker
	)
	if s.backend != nil {
		retriever, checker = s.backend, s.backend
	}
	healthHandler := handlers.NewHealthHandler(checker)
	searchHandler := handlers.NewSearchHandler(retriever, s.logger)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	v1 := s.router.Group("/api/v1")
	{
		schema := v1.Group("/schema")
		{
			schema.POST("/search", searchHandler.Search)
			schema.POST("/search-by-label", searchHandler.SearchByLabel)
		}
	}
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// requestIDMiddleware reuses the caller's X-Request-ID or mints one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(handlers.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), types.ContextKeyRequestID, id))
		c.Next()
	}
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(handlers.RequestIDKey))
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-User-ID, X-Session-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if userID := c.GetHeader("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyUserID, userID)
		}
		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			ctx = context.WithValue(ctx, types.ContextKeySessionID, sessionID)
		}
		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
