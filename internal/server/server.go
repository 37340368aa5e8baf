// Package server provides the HTTP adapter over the reconciliation runner
// and the mismatch lifecycle service. Dashboards and import pipelines are
// external collaborators of this API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vendorops/attendance/internal/reconcile"
	"github.com/vendorops/attendance/internal/workflow"
)

// Config holds HTTP server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP adapter
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	runner     *reconcile.Runner
	lifecycle  *workflow.Service
	logger     *zap.Logger
}

// New creates a new HTTP server wired to the runner and lifecycle service
func New(config Config, runner *reconcile.Runner, lifecycle *workflow.Service, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config:    config,
		router:    router,
		runner:    runner,
		lifecycle: lifecycle,
		logger:    logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.POST("/reconcile", s.handleReconcile)
		api.GET("/mismatches", s.handleListMismatches)
		api.GET("/mismatches/:id", s.handleGetMismatch)
		api.POST("/mismatches/:id/explanation", s.handleSubmitExplanation)
		api.POST("/mismatches/:id/resolve", s.handleResolveMismatch)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Start begins serving; blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server starting", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
