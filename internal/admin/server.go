package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/health"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/registry"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

const readHeaderTimeout = 10 * time.Second

// Registry is the read side of the acceptor registry.
type Registry interface {
	HTTPAcceptors() []*acceptor.HTTPAcceptor
	TCPAcceptors() []*acceptor.TCPAcceptor
	Deployments() []registry.Deployment
	Deployment(id string) (registry.Deployment, bool)
}

// Server is the administration HTTP server.
type Server struct {
	address  string
	engine   *gin.Engine
	registry Registry
	checker  *health.Checker
	metrics  *observability.Metrics
	logger   observability.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	done       chan struct{}
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes metrics on /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithChecker sets the health checker behind /health and /ready.
func WithChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.checker = checker
	}
}

// NewServer creates an administration server listening on address.
func NewServer(address string, reg Registry, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		address:  address,
		engine:   gin.New(),
		registry: reg,
		checker:  health.NewChecker(""),
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler serving the administration API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())

	s.engine.GET("/acceptors/http", s.httpAcceptors)
	s.engine.GET("/acceptors/tcp", s.tcpAcceptors)
	s.engine.GET("/apis", s.deployments)
	s.engine.GET("/apis/:id", s.deployment)
	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func (s *Server) httpAcceptors(c *gin.Context) {
	c.JSON(http.StatusOK, NewAcceptorViews(s.registry.HTTPAcceptors()))
}

func (s *Server) tcpAcceptors(c *gin.Context) {
	c.JSON(http.StatusOK, NewAcceptorViews(s.registry.TCPAcceptors()))
}

func (s *Server) deployments(c *gin.Context) {
	deployments := s.registry.Deployments()
	views := make([]DeploymentView, 0, len(deployments))
	for _, d := range deployments {
		views = append(views, NewDeploymentView(d))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) deployment(c *gin.Context) {
	d, ok := s.registry.Deployment(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  http.StatusNotFound,
			"message": "api not deployed",
		})
		return
	}
	c.JSON(http.StatusOK, NewDeploymentView(d))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, s.checker.Health())
}

func (s *Server) ready(c *gin.Context) {
	resp := s.checker.Readiness(c.Request.Context())
	status := http.StatusOK
	if !resp.Ready() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("admin server already running")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	s.listener = ln
	s.done = make(chan struct{})
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("admin server started",
		observability.String("address", ln.Addr().String()),
	)

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", observability.Error(err))
		}
	}(s.httpServer, s.done)

	return nil
}

// Addr returns the bound address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server, done := s.httpServer, s.done
	s.httpServer, s.listener = nil, nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	err := server.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("failed to shutdown admin server: %w", err)
	}

	s.logger.Info("admin server stopped")
	return nil
}
