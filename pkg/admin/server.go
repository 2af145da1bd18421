package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"emberhold/realmd/pkg/config"
	"emberhold/realmd/pkg/telemetry/health"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h at the configured metrics path.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the build information served on /version.
func WithVersion(version, commit, buildTime string) Option {
	return func(s *Server) {
		s.version = health.VersionHandler(version, commit, buildTime)
	}
}

// Server is the operator HTTP surface: metrics, probes and build info.
type Server struct {
	config    *config.AdminConfig
	telemetry *config.TelemetryConfig
	checker   *health.Checker
	metrics   http.Handler
	version   http.Handler
	logger    *slog.Logger

	mu           sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	isRunning    bool
	serveErr     chan error
	shutdownOnce sync.Once
}

// New creates an admin server. checker serves /health and /ready.
func New(cfg *config.AdminConfig, telemetry *config.TelemetryConfig, checker *health.Checker, opts ...Option) *Server {
	s := &Server{
		config:    cfg,
		telemetry: telemetry,
		checker:   checker,
		logger:    slog.Default().With("component", "admin"),
		serveErr:  make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the admin address and serves in the background. Bind errors
// are returned; serve errors are reported on Err.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("admin server is already running")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("bind admin address %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.isRunning = true

	go func() {
		s.logger.Info("starting admin server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- fmt.Errorf("admin server error: %w", err)
		}
	}()
	return nil
}

// Err reports a failure of the background serve loop.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// Shutdown gracefully shuts down the server within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running, srv := s.isRunning, s.httpServer
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("error during admin shutdown", "error", err)
			shutdownErr = fmt.Errorf("admin shutdown error: %w", err)
		}
		s.logger.Info("admin server stopped")
	})

	return shutdownErr
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed admin handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.checker != nil {
		mux.Handle(s.telemetry.Health.LivenessPath, s.checker.LivenessHandler())
		mux.Handle(s.telemetry.Health.ReadinessPath, s.checker.ReadinessHandler())
	}
	if s.metrics != nil && s.telemetry.Metrics.Enabled {
		mux.Handle(s.telemetry.Metrics.Path, s.metrics)
	}
	if s.version != nil {
		mux.Handle("/version", s.version)
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = recoveryMiddleware(s.logger, handler)
	return handler
}
