package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRequestTimeout bounds each inbound request.
const DefaultRequestTimeout = 30 * time.Second

// Options configures a Server.
type Options struct {
	Port           int
	Logger         *slog.Logger
	RequestTimeout time.Duration
	// RouteTimeouts replace RequestTimeout for matching routes.
	RouteTimeouts []RouteTimeout
	// ServiceName labels the inbound otelhttp spans.
	ServiceName string
}

// Server is the copilot HTTP server: a chi router with the standard
// middleware chain and graceful shutdown.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

// New creates a server with request id, logging, timeout, panic recovery
// and tracing middleware applied in that order.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	name := opts.ServiceName
	if name == "" {
		name = "compliance-copilot"
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(timeout, opts.RouteTimeouts...))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, name)
	})

	return &Server{
		Router: r,
		Port:   opts.Port,
		logger: logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			// The handler deadlines bound the rest.
			WriteTimeout: longestTimeout(timeout, opts.RouteTimeouts) + 5*time.Second,
		},
	}
}

// Mount attaches h under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.Router.Mount(pattern, h)
}

// Start listens on the configured port and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func longestTimeout(d time.Duration, routes []RouteTimeout) time.Duration {
	for _, rt := range routes {
		d = max(d, rt.Timeout)
	}
	return d
}
