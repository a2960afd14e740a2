// Package server exposes a project over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshharrison/critpath/internal/date"
	"github.com/joshharrison/critpath/internal/project"
)

const requestIDHeader = "X-Request-ID"

// Server serves one in-memory project.
type Server struct {
	project  *project.Project
	metrics  *Metrics
	registry *prometheus.Registry
	logger   *slog.Logger
	today    func() date.Date
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock overrides the date used when a demo is seeded without a start.
func WithClock(today func() date.Date) Option {
	return func(s *Server) { s.today = today }
}

// New creates a server for p with its own metrics registry.
func New(p *project.Project, opts ...Option) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		project:  p,
		metrics:  NewMetrics(reg),
		registry: reg,
		logger:   slog.Default(),
		today:    date.Today,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/schedule", s.handleGetSchedule)
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleAddTask)
		api.POST("/tasks/:id/dependencies", s.handleAddDependency)
		api.PUT("/settings", s.handlePutSettings)
		api.POST("/demo", s.handleSeedDemo)
		api.POST("/reset", s.handleReset)
	}
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		began := time.Now()
		c.Next()

		s.logger.Info("request",
			"id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(began),
		)
	}
}
