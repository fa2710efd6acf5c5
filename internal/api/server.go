package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/config"
	"github.com/wemix/lagwatch/internal/metrics"
	"github.com/wemix/lagwatch/internal/monitor"
	"github.com/wemix/lagwatch/pkg/logger"
)

// StatusProvider exposes what the monitor knows. *monitor.Monitor implements it.
type StatusProvider interface {
	LastResult() *monitor.CycleResult
	LoadState() (alerting.State, error)
	Thresholds() alerting.Thresholds
}

// Server represents the API server
type Server struct {
	router    *gin.Engine
	server    *http.Server
	listener  net.Listener
	logger    *logger.Logger
	config    config.APIConfig
	status    StatusProvider
	collector *metrics.Collector
	auth      *AuthMiddleware
	version   string
	started   time.Time
}

// NewServer creates a new API server
func NewServer(cfg config.APIConfig, status StatusProvider, collector *metrics.Collector, version string, log *logger.Logger) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
		gin.DefaultWriter = log.Writer()
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(log))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	server := &Server{
		router:    router,
		logger:    log,
		config:    cfg,
		status:    status,
		collector: collector,
		version:   version,
		started:   time.Now(),
	}
	if cfg.JWTSecret != "" {
		server.auth = NewAuthMiddleware(cfg.JWTSecret, log)
	}

	server.setupRoutes()
	return server
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)
	s.router.GET("/metrics", gin.WrapH(s.collector.Handler()))

	v1 := s.router.Group("/api/v1")
	if s.auth != nil {
		v1.Use(s.auth.Authenticate())
	}
	v1.GET("/status", s.getStatus)
	v1.GET("/thresholds", s.getThresholds)
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("starting API server", zap.String("addr", listener.Addr().String()))
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown API server gracefully", zap.Error(err))
		return err
	}

	s.logger.Info("API server stopped")
	return nil
}

// healthHandler reports that the process is serving
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// readyHandler reports ready once a cycle has completed
func (s *Server) readyHandler(c *gin.Context) {
	if s.status == nil || s.status.LastResult() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"message": "no check cycle completed yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

// getStatus returns the last cycle and the stored alert state
func (s *Server) getStatus(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor not available"})
		return
	}

	stored, err := s.status.LoadState()
	if err != nil {
		s.logger.Error("failed to load alert state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alert state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":    s.version,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"last_cycle": s.status.LastResult(),
		"state":      stored,
	})
}

// getThresholds returns the threshold table keyed by level
func (s *Server) getThresholds(c *gin.Context) {
	if s.status == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitor not available"})
		return
	}

	thresholds := s.status.Thresholds()
	levels := make(gin.H, alerting.MaxLevel)
	for level := alerting.Level(1); level <= alerting.MaxLevel; level++ {
		levels[fmt.Sprintf("level_%d", level)] = thresholds.For(level)
	}

	c.JSON(http.StatusOK, gin.H{
		"thresholds": levels,
		"ascending":  thresholds.Ascending(),
	})
}

// ginLogger logs each request through the zap wrapper
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Debug("API request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}
