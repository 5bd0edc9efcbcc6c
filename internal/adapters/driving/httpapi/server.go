// Package httpapi exposes the RAG pipeline as a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Config holds HTTP server settings.
type Config struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxBodyBytes caps request bodies. A full batch of maximum size
	// documents stays well below the default.
	MaxBodyBytes int64
}

// DefaultConfig returns the default server settings. Write timeout is
// generous because a query waits on a language model.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    8 << 20,
	}
}

// Server serves the RAG API.
type Server struct {
	config  Config
	rag     driving.RAGService
	metrics http.Handler
	router  *gin.Engine
}

// Option configures the server.
type Option func(*Server)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithConfig replaces the default server settings.
func WithConfig(cfg Config) Option {
	return func(s *Server) { s.config = cfg }
}

// New creates a server for rag.
func New(rag driving.RAGService, opts ...Option) (*Server, error) {
	if rag == nil {
		return nil, errors.New("httpapi: rag service is required")
	}

	s := &Server{config: DefaultConfig(), rag: rag}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(loggingMiddleware())
	s.router.Use(bodyLimitMiddleware(s.config.MaxBodyBytes))
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthz)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := s.router.Group("/v1")
	{
		documents := v1.Group("/documents")
		documents.POST("", s.addDocument)
		documents.POST("/batch", s.batchAddDocuments)
		documents.PUT("/:id", s.updateDocument)
		documents.DELETE("/:id", s.removeDocument)

		v1.POST("/query", s.query)
		v1.GET("/status", s.status)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
