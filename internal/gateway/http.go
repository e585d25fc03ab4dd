package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/middleware"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/util"
)

const (
	defaultReadHeaderTimeout = 10 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// HTTPServer is an HTTP entrypoint bound to one server id.
type HTTPServer struct {
	config   config.ServerConfig
	resolver *resolver.Resolver
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewHTTPServer creates an HTTP entrypoint for cfg.
func NewHTTPServer(cfg config.ServerConfig, res *resolver.Resolver, opts ...ServerOption) *HTTPServer {
	o := applyServerOptions(opts)
	return &HTTPServer{
		config:   cfg,
		resolver: res,
		logger:   o.logger.With(observability.String("server_id", cfg.ID)),
		metrics:  o.metrics,
		tracer:   o.tracer,
	}
}

// ID returns the server id.
func (s *HTTPServer) ID() string {
	return s.config.ID
}

// Addr returns the bound address, or nil before Start.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the request handler with the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	mws := []middleware.Middleware{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		s.withServerID,
	}
	if s.tracer != nil {
		mws = append(mws, observability.TracingMiddleware(s.tracer))
	}
	mws = append(mws,
		middleware.Metrics(s.metrics, s.config.ID),
		middleware.Logging(s.logger),
	)
	return middleware.Chain(http.HandlerFunc(s.route), mws...)
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("%w: %s", ErrServerRunning, s.config.ID)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.listener = ln
	s.done = make(chan struct{})
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.config.ReadTimeout.Duration(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout.Duration(),
		IdleTimeout:       s.config.IdleTimeout.Duration(),
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	s.logger.Info("http server started",
		observability.String("address", ln.Addr().String()),
	)

	go s.serve(s.server, ln, s.done)
	return nil
}

func (s *HTTPServer) serve(server *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("http server error", observability.Error(err))
	}
}

// Stop shuts the server down gracefully, bounded by ctx and the
// configured shutdown timeout.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	server, done := s.server, s.done
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	if timeout := s.config.ShutdownTimeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := server.Shutdown(ctx)
	if err != nil {
		if closeErr := server.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		err = fmt.Errorf("failed to shutdown http server %s gracefully: %w", s.config.ID, err)
	}
	<-done

	s.mu.Lock()
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	s.logger.Info("http server stopped")
	return err
}

func (s *HTTPServer) withServerID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(util.ContextWithServerID(r.Context(), s.config.ID)))
	})
}

// route resolves the request and hands it to the owner of the matched
// acceptor. The execution context holding the match travels on the request
// context.
func (s *HTTPServer) route(w http.ResponseWriter, r *http.Request) {
	rc := resolver.NewRequestContext(acceptor.KindHTTP, acceptor.Request{
		Host:     hostWithoutPort(r.Host),
		Path:     r.URL.Path,
		ServerID: s.config.ID,
	})
	matched, ok := s.resolver.Resolve(rc)
	if !ok {
		util.WriteJSONError(w, r, http.StatusNotFound, "no API matches the request")
		return
	}

	owner := matched.Owner()
	handler, ok := owner.(http.Handler)
	if !ok {
		s.logger.Warn("matched acceptor has no http handler",
			observability.String("acceptor", fmt.Sprint(matched)),
		)
		util.WriteJSONError(w, r, http.StatusServiceUnavailable, "API is not available")
		return
	}

	attrs := []attribute.KeyValue{attribute.String("gateway.api", owner.ID())}
	if a, ok := matched.(*acceptor.HTTPAcceptor); ok {
		attrs = append(attrs, attribute.String("gateway.acceptor.path", a.Path()))
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attrs...)

	handler.ServeHTTP(w, r.WithContext(resolver.NewContext(r.Context(), rc)))
}

// hostWithoutPort strips the port and IPv6 brackets from a Host header.
func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}
