// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the verification and classification engines over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"strada-check/internal/config"
	"strada-check/internal/store"
	"strada-check/internal/suppressions"

	// Import formatters to register them
	_ "strada-check/internal/formatters/csv"
	_ "strada-check/internal/formatters/json"
	_ "strada-check/internal/formatters/junit"
	_ "strada-check/internal/formatters/text"
	_ "strada-check/internal/formatters/yaml"
)

// portAttempts is how many consecutive ports Start tries
const portAttempts = 10

// Options are the optional collaborators of a Server
type Options struct {
	Logger       *zap.Logger
	Suppressions *suppressions.SuppressionManager
	// Store enables run history; nil disables /api/runs and saving
	Store *store.Store
	Debug bool
}

// Server is the web server instance
type Server struct {
	cfg          *config.Config
	logger       *zap.Logger
	suppressions *suppressions.SuppressionManager
	store        *store.Store
	debug        bool
	engine       *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(cfg *config.Config, opts Options) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		suppressions: opts.Suppressions,
		store:        opts.Store,
		debug:        opts.Debug,
	}
	s.engine = s.setupRoutes()
	return s
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the address the server is listening on once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) setupRoutes() *gin.Engine {
	if !s.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), securityHeaders())
	r.MaxMultipartMemory = s.maxUploadBytes()

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/checks", s.handleChecks)
	api.GET("/formats", s.handleFormats)

	upload := api.Group("", limitBody(s.maxUploadBytes()))
	upload.POST("/verify", s.handleVerify)
	upload.POST("/classify", s.handleClassify)
	upload.POST("/export", s.handleExport)

	sup := api.Group("/suppressions")
	sup.GET("", s.handleListSuppressions)
	sup.POST("", s.handleCreateSuppression)
	sup.DELETE("/:id", s.handleRemoveSuppression)
	sup.POST("/:id/enable", s.handleSetSuppressionEnabled(true))
	sup.POST("/:id/disable", s.handleSetSuppressionEnabled(false))

	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	})
	return r
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.cfg.Web.MaxUploadMB
	if mb <= 0 {
		mb = 100
	}
	return int64(mb) << 20
}

// listen binds the configured address. When the port is taken the next
// ports are tried in turn.
func (s *Server) listen() (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(s.cfg.Web.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address %q: %w", s.cfg.Web.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	// Port 0 asks the kernel for any free port
	if port == 0 {
		return net.Listen("tcp", s.cfg.Web.Addr)
	}

	var lastErr error
	for i := 0; i < portAttempts; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}
		lastErr = err
		s.logger.Warn("port unavailable, trying next", zap.String("addr", addr), zap.Error(err))
	}
	return nil, fmt.Errorf("could not find an available port in range %d-%d: %w\n"+
		"Troubleshooting:\n"+
		"  1. Check which services use these ports\n"+
		"  2. Pick another address with --addr or web.addr in the config file",
		port, port+portAttempts-1, lastErr)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	addr := ln.Addr().String()
	s.mu.Lock()
	s.addr = addr
	s.httpServer = httpServer
	s.mu.Unlock()
	s.logger.Info("web server started", zap.String("addr", addr), zap.String("url", "http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("web server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Stop closes the server immediately
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}
