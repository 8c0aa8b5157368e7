// Package server provides the shared Gin HTTP server with the middleware,
// health, and metrics endpoints every CrawlChat process exposes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

// Options configures the optional parts of a server.
type Options struct {
	ServiceName string
	Version     string
	Debug       bool
	// Metrics, when set, adds request instrumentation and a /metrics endpoint.
	Metrics *metrics.Metrics
	// ReadyChecks gate /readyz on downstream dependencies.
	ReadyChecks map[string]HealthChecker
	// Routes registers service-specific routes after the standard middleware.
	Routes func(*gin.Engine)
}

// Server wraps a Gin engine with lifecycle management.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Interface
	cfg    config.ServerConfig
}

// New builds the server with middleware applied in a fixed order: recovery,
// request ID, request logging, CORS, then metrics.
func New(cfg config.ServerConfig, log logger.Interface, opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(Recovery(log))
	router.Use(RequestID())
	router.Use(RequestLogger(log))
	router.Use(CORS(cfg.AllowedOrigins))
	if opts.Metrics != nil {
		router.Use(RequestMetrics(opts.Metrics))
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	registerHealthRoutes(router, opts)

	if opts.Routes != nil {
		opts.Routes(router)
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
		cfg: cfg,
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks serving requests until shutdown or listener failure.
func (s *Server) Start() error {
	s.log.Info("starting http server",
		"address", s.server.Addr,
		"read_timeout", s.server.ReadTimeout,
		"write_timeout", s.server.WriteTimeout,
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// StartAsync serves in a goroutine and reports failure on the returned channel.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Run serves until SIGINT, SIGTERM, or context cancellation, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := s.StartAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
	}

	// The run context may already be cancelled; shutdown needs its own.
	return s.Shutdown(context.Background())
}
