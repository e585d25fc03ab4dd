package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Server is an entrypoint server.
type Server interface {
	ID() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Gateway owns one entrypoint server per configured server id.
type Gateway struct {
	config    *config.GatewayConfig
	resolver  *resolver.Resolver
	logger    observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	servers   []Server
	state     atomic.Int32
	startTime atomic.Pointer[time.Time]

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics the servers record to.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracer enables request tracing on HTTP servers.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithShutdownTimeout bounds Stop when ctx carries no deadline.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// New creates a gateway serving the servers declared in cfg.
func New(cfg *config.GatewayConfig, res *resolver.Resolver, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if res == nil {
		return nil, ErrNilResolver
	}

	g := &Gateway{
		config:          cfg,
		resolver:        res,
		logger:          observability.NopLogger(),
		shutdownTimeout: config.DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}

	serverOpts := []ServerOption{
		WithServerLogger(g.logger),
		WithServerMetrics(g.metrics),
		WithServerTracer(g.tracer),
	}
	for _, sc := range cfg.Spec.Servers {
		switch sc.Kind {
		case acceptor.KindHTTP:
			g.servers = append(g.servers, NewHTTPServer(sc, res, serverOpts...))
		case acceptor.KindTCP:
			g.servers = append(g.servers, NewTCPServer(sc, res, serverOpts...))
		default:
			return nil, fmt.Errorf("server %s: unsupported kind %q", sc.ID, sc.Kind)
		}
	}

	g.state.Store(int32(StateStopped))
	return g, nil
}

// Start starts every server. When one fails, the servers already started
// are stopped again.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("name", g.config.Metadata.Name),
		observability.Int("servers", len(g.servers)),
	)

	for i, s := range g.servers {
		if err := s.Start(ctx); err != nil {
			_ = g.stopServers(context.WithoutCancel(ctx), g.servers[:i])
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start server %s: %w", s.ID(), err)
		}
	}

	now := time.Now()
	g.startTime.Store(&now)
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", g.config.Metadata.Name),
	)
	return nil
}

// Stop stops every server concurrently.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway",
		observability.String("name", g.config.Metadata.Name),
	)

	if _, ok := ctx.Deadline(); !ok && g.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	err := g.stopServers(ctx, g.servers)
	g.startTime.Store(nil)
	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.String("name", g.config.Metadata.Name),
	)
	return err
}

func (g *Gateway) stopServers(ctx context.Context, servers []Server) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, s := range servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			if err := s.Stop(ctx); err != nil {
				g.logger.Error("failed to stop server",
					observability.String("server_id", s.ID()),
					observability.Error(err),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns how long the gateway has been running.
func (g *Gateway) Uptime() time.Duration {
	started := g.startTime.Load()
	if started == nil {
		return 0
	}
	return time.Since(*started)
}

// Config returns the configuration the gateway was built from.
func (g *Gateway) Config() *config.GatewayConfig {
	return g.config
}

// Servers returns the entrypoint servers in configuration order.
func (g *Gateway) Servers() []Server {
	return g.servers
}

// Server returns the server with the given id.
func (g *Gateway) Server(id string) (Server, bool) {
	for _, s := range g.servers {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}
