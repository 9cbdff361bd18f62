// Package service owns the responder's listeners and their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/okian/imagestub/internal/adapters/http/api"
	"github.com/okian/imagestub/pkg/logger"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout      = 5 * time.Second
	idleTimeout            = 60 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Service binds the image responder and the optional metrics listener.
type Service struct {
	mu sync.Mutex

	// Configuration
	addr            string
	metricsAddr     string
	shutdownTimeout time.Duration

	// State
	started    bool
	srv        *http.Server
	listener   net.Listener
	metricsSrv *http.Server
	metricsLn  net.Listener
	errCh      chan error
	serveWG    sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAddr sets the host:port the responder binds.
func WithAddr(addr string) Option {
	return func(s *Service) {
		s.addr = addr
	}
}

// WithMetricsAddr enables a separate /metrics listener on addr.
func WithMetricsAddr(addr string) Option {
	return func(s *Service) {
		s.metricsAddr = addr
	}
}

// WithShutdownTimeout bounds Stop when the caller's context has no deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service. Nothing is bound until Start.
func New(opts ...Option) *Service {
	s := &Service{
		shutdownTimeout: defaultShutdownTimeout,
		errCh:           make(chan error, 2),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the routing table, binds the listeners and begins serving.
// Binding happens before Start returns, so a bind failure is reported here
// and leaves no socket open. Calling Start again is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	apiOpts := []api.Option{}
	if s.logger != nil {
		apiOpts = append(apiOpts, api.WithLogger(s.logger))
	}
	handler := api.NewServer(apiOpts...).Handler(ctx)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, s.addr, err)
	}

	var metricsLn net.Listener
	if s.metricsAddr != "" {
		metricsLn, err = net.Listen("tcp", s.metricsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("%w: metrics %s: %w", ErrBind, s.metricsAddr, err)
		}
	}

	s.listener = ln
	s.srv = newHTTPServer(handler)
	s.serve(s.srv, ln, "image")

	if metricsLn != nil {
		mux := http.NewServeMux()
		api.RegisterMetrics(ctx, mux)
		s.metricsLn = metricsLn
		s.metricsSrv = newHTTPServer(mux)
		s.serve(s.metricsSrv, metricsLn, "metrics")
	}

	s.started = true
	if s.logger != nil {
		s.logger.Info(ctx, "listening", logger.String("addr", ln.Addr().String()))
		if metricsLn != nil {
			s.logger.Info(ctx, "metrics listening", logger.String("addr", metricsLn.Addr().String()))
		}
	}
	return nil
}

func newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

func (s *Service) serve(srv *http.Server, ln net.Listener, name string) {
	s.serveWG.Add(1)
	go func() {
		defer s.serveWG.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errCh <- fmt.Errorf("%w: %s: %w", ErrServe, name, err):
			default:
			}
		}
	}()
}

// Addr returns the bound responder address, or "" before Start.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (s *Service) MetricsAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metricsLn == nil {
		return ""
	}
	return s.metricsLn.Addr().String()
}

// Err reports serve failures that happen after Start returned.
func (s *Service) Err() <-chan error {
	return s.errCh
}

// Stop gracefully shuts the listeners down. It is safe to call before Start
// or more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if s.logger != nil {
		s.logger.Info(ctx, "shutting down server...")
	}

	var errs []error
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.serveWG.Wait()

	s.started = false
	s.srv, s.listener = nil, nil
	s.metricsSrv, s.metricsLn = nil, nil

	if s.logger != nil {
		s.logger.Info(ctx, "server stopped")
	}
	return errors.Join(errs...)
}
