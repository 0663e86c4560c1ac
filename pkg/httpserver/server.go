// Package httpserver runs an http.Handler until its context is cancelled and
// then drains in-flight requests within a deadline.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/talktime/pkg/logger"
)

var (
	ErrStart          = errors.New("httpserver.errors.start_failed")
	ErrShutdown       = errors.New("httpserver.errors.shutdown_failed")
	ErrAlreadyRunning = errors.New("httpserver.errors.already_running")
)

// Config is loaded from HTTP_* variables.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server serves one handler at a time.
type Server struct {
	cfg     Config
	handler http.Handler
	log     *slog.Logger

	mu      sync.Mutex
	running bool
}

// New builds a Server. A nil handler serves 404 for every path.
func New(cfg Config, handler http.Handler, opts ...Option) *Server {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, handler: handler, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on Config.Addr and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.InfoContext(ctx, "http server started", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Join(ErrStart, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		s.log.ErrorContext(shutdownCtx, "http server shutdown failed", logger.Error(err))
		return errors.Join(ErrShutdown, err)
	}
	s.log.InfoContext(shutdownCtx, "http server stopped")
	return nil
}
