// Package api exposes the model adapter and the space weather table over
// HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-msis/internal/common"
	"github.com/KI7MT/ki7mt-msis/internal/msis"
	"github.com/KI7MT/ki7mt-msis/internal/spaceweather"
)

// Indices is the space weather lookup used by the time-based endpoint.
// *spaceweather.Table and *spaceweather.Refresher implement it.
type Indices interface {
	spaceweather.IndexSource
	Day(t time.Time) (spaceweather.Day, error)
	Drivers(t time.Time) (spaceweather.Drivers, error)
	ApArray(t time.Time) (msis.ApArray, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg     *common.Config
	adapter *msis.Adapter
	indices Indices
	log     logrus.FieldLogger
	engine  *gin.Engine
}

// New constructs a server with routes and middleware. indices may be nil,
// in which case the time-based endpoint needs explicit indices.
func New(cfg *common.Config, adapter *msis.Adapter, indices Indices, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, adapter: adapter, indices: indices, log: log, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/gtd7", s.handleCall(msis.MethodStandard))
	v1.POST("/gtd7d", s.handleCall(msis.MethodEffectiveDrag))
	v1.POST("/model", s.handleModel)
	v1.GET("/indices/:date", s.handleIndices)
}

func (s *Server) handleHealth(c *gin.Context) {
	model := s.adapter.Model()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"model":           model.Name(),
		"model_available": model.IsAvailable(),
		"indices":         s.indices != nil,
	})
}

// =============================================================================
// Middleware
// =============================================================================

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	}
}
