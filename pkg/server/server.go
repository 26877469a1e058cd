package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/afelipfo/alpr-dashboard/pkg/api/middleware"
	"github.com/afelipfo/alpr-dashboard/pkg/config"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/health"
	"github.com/afelipfo/alpr-dashboard/pkg/telemetry/metrics"
)

var (
	// ErrServerRunning is returned by Start when the server is already
	// serving.
	ErrServerRunning = errors.New("server is already running")

	// ErrServerStopped is returned by Start after Shutdown.
	ErrServerStopped = errors.New("server has been shut down")
)

// Routes are the handlers mounted by the server.
type Routes struct {
	// API serves everything under /api/.
	API http.Handler

	// Health serves /health and /ready. Nil disables them.
	Health *health.Checker

	// Build is served on /version.
	Build health.BuildInfo

	// Metrics serves Prometheus metrics on MetricsPath when enabled.
	Metrics     *metrics.Collector
	MetricsPath string
}

// Server is the HTTP server of the ALPR dashboard backend.
type Server struct {
	config       *config.ServerConfig
	routes       Routes
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	stopped      chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for the given routes.
func NewServer(cfg *config.ServerConfig, routes Routes, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:  cfg,
		routes:  routes,
		logger:  logger.With("component", "server"),
		stopped: make(chan struct{}),
	}
}

// Start listens on the configured address and blocks until ctx is
// cancelled, Shutdown is called, or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return ErrServerRunning
	}
	select {
	case <-s.stopped:
		s.mu.Unlock()
		return ErrServerStopped
	default:
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	httpServer := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.stopped:
		return nil
	}
}

// Shutdown gracefully shuts down the server, waiting at most the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		defer close(s.stopped)

		s.mu.RLock()
		httpServer := s.httpServer
		running := s.isRunning
		s.mu.RUnlock()
		if !running || httpServer == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("HTTP server stopped")
	})

	return shutdownErr
}

// Handler returns the root handler: the API under /api/, the health and
// version endpoints, and the metrics endpoint, wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.routes.API != nil {
		mux.Handle("/api/", s.routes.API)
	}
	if s.routes.Health != nil {
		s.routes.Health.Mount(mux, s.routes.Build)
	}
	if s.routes.Metrics.Enabled() {
		path := s.routes.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.routes.Metrics.Handler())
	}

	return middleware.CORS(s.config.CORS)(mux)
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Health reports an error when the server is not serving.
func (s *Server) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return errors.New("server is not running")
	}
	return nil
}
