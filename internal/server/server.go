// Package server exposes the search engine over an HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ca-srg/mailscope/internal/auth"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/types"
)

// SearchService is the query engine consumed by the handlers
type SearchService interface {
	Search(ctx context.Context, filter types.FilterDescriptor) (*types.SearchResponse, error)
	DashboardStats(ctx context.Context, window *types.DateRange) (*types.StatsResponse, error)
	GetEmail(ctx context.Context, id string) (*types.EmailDetail, error)
}

// HealthChecker reports document store health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (string, error)
}

// Config holds the HTTP listener settings
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// DefaultConfig returns the default listener settings
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxHeaderBytes:  1 << 20,
	}
}

// NewConfigFromTypes copies the listener settings out of the root config
func NewConfigFromTypes(cfg *types.Config) *Config {
	return &Config{
		Host:            cfg.ServerHost,
		Port:            cfg.ServerPort,
		ReadTimeout:     cfg.ServerReadTimeout,
		WriteTimeout:    cfg.ServerWriteTimeout,
		IdleTimeout:     cfg.ServerIdleTimeout,
		ShutdownTimeout: cfg.ServerShutdownTimeout,
		MaxHeaderBytes:  cfg.ServerMaxHeaderBytes,
	}
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Deps are the collaborators injected into the server. Only Service is required.
type Deps struct {
	Service     SearchService
	Health      HealthChecker
	Auth        *auth.Middleware
	Usage       *metrics.Recorder
	HTTPMetrics *metrics.HTTPMetrics
	// MCP is mounted at /mcp behind Auth when non-nil
	MCP    http.Handler
	Logger *log.Logger
}

// Server is the API server
type Server struct {
	config       *Config
	service      SearchService
	health       HealthChecker
	auth         *auth.Middleware
	usage        *metrics.Recorder
	httpMetrics  *metrics.HTTPMetrics
	mcp          http.Handler
	logger       *log.Logger
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer creates a server; a nil config uses DefaultConfig
func NewServer(cfg *Config, deps Deps) (*Server, error) {
	if deps.Service == nil {
		return nil, fmt.Errorf("server: search service is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(log.Writer(), "[server] ", log.LstdFlags)
	}

	return &Server{
		config:      cfg,
		service:     deps.Service,
		health:      deps.Health,
		auth:        deps.Auth,
		usage:       deps.Usage,
		httpMetrics: deps.HTTPMetrics,
		mcp:         deps.MCP,
		logger:      deps.Logger,
	}, nil
}

// Handler returns the fully wired HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", s.instrument("/healthz", http.HandlerFunc(s.handleHealth)))

	s.handleProtected(mux, "GET /api/search", "/api/search", s.handleSearch)
	s.handleProtected(mux, "GET /api/dashboard/stats", "/api/dashboard/stats", s.handleDashboardStats)
	s.handleProtected(mux, "GET /api/emails/{id}", "/api/emails/{id}", s.handleGetEmail)
	s.handleProtected(mux, "GET /api/me", "/api/me", s.handleMe)

	if s.mcp != nil {
		mux.Handle("/mcp", s.instrument("/mcp", s.authenticate(s.mcp)))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "")
	})

	return requestIDMiddleware(mux)
}

func (s *Server) handleProtected(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(route, s.authenticate(h)))
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	if s.auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Anonymous)))
		})
	}
	return s.auth.Handler(next)
}

func (s *Server) clientIP(r *http.Request) string {
	if s.auth != nil {
		return s.auth.ClientIP(r)
	}
	return auth.ClientIP(r, nil)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:           s.config.Addr(),
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting API server at http://%s", s.config.Addr())
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}
