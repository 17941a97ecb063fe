package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/dago-pathway-router/internal/pathway"
	"github.com/aescanero/dago-pathway-router/internal/patient"
	"github.com/aescanero/dago-pathway-router/internal/router"
)

// Router is the routing entry point the API serves.
type Router interface {
	Route(ctx context.Context, rec patient.Record) ([]router.ActivationResult, error)
	RouteAll(ctx context.Context, rec patient.Record) ([]router.ActivationResult, error)
}

// Store lists and resolves pathways.
type Store interface {
	ListIDs() []string
	Get(id string) (*pathway.Pathway, error)
	Manifest() pathway.Manifest
}

// ReadyCheck reports whether a dependency is ready; nil means ready.
type ReadyCheck func(ctx context.Context) error

// Deps are the collaborators served over HTTP.
type Deps struct {
	Router  Router
	Store   Store
	Metrics http.Handler
	// Checks run on /health and /ready, keyed by dependency name.
	Checks map[string]ReadyCheck
	Logger *zap.Logger
}

// Server serves the pathway router over HTTP
type Server struct {
	deps   Deps
	engine *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// NewServer creates a new HTTP server with its routes registered
func NewServer(deps Deps, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(accessLogMiddleware(logger))

	s := &Server{
		deps:   deps,
		engine: engine,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts serving on port in the background
func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	s.logger.Info("starting http server", zap.Int("port", port))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/ready", s.handleReady)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/route", s.handleRoute)
		v1.GET("/pathways", s.handleListPathways)
		v1.GET("/pathways/:id", s.handleGetPathway)
		v1.POST("/uticalc", s.handleUTICalc)
	}
}

// requestIDMiddleware propagates or assigns an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// accessLogMiddleware logs each request through zap
func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
