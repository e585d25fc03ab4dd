package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/resolver"
)

// ConnHandler is implemented by owners able to take over a raw connection.
// preface holds the bytes already read from conn.
type ConnHandler interface {
	HandleConn(ctx context.Context, conn net.Conn, preface []byte) error
}

// TCPServer is a TLS passthrough entrypoint bound to one server id.
// Connections are routed on the SNI server name without terminating TLS.
type TCPServer struct {
	config      config.ServerConfig
	resolver    *resolver.Resolver
	logger      observability.Logger
	metrics     *observability.Metrics
	connections *ConnectionTracker

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewTCPServer creates a TCP entrypoint for cfg.
func NewTCPServer(cfg config.ServerConfig, res *resolver.Resolver, opts ...ServerOption) *TCPServer {
	o := applyServerOptions(opts)
	logger := o.logger.With(observability.String("server_id", cfg.ID))
	return &TCPServer{
		config:      cfg,
		resolver:    res,
		logger:      logger,
		metrics:     o.metrics,
		connections: NewConnectionTracker(cfg.MaxConnections, logger),
	}
}

// ID returns the server id.
func (s *TCPServer) ID() string {
	return s.config.ID
}

// Addr returns the bound address, or nil before Start.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Connections returns the tracker of active connections.
func (s *TCPServer) Connections() *ConnectionTracker {
	return s.connections
}

// Start binds the listener and accepts connections in the background.
// Connection contexts derive from ctx.
func (s *TCPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("%w: %s", ErrServerRunning, s.config.ID)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = ln
	s.cancel = cancel

	s.logger.Info("tcp server started",
		observability.String("address", ln.Addr().String()),
		observability.Int("max_connections", s.config.MaxConnections),
		observability.Duration("sni_timeout", s.config.SNITimeout.Duration()),
	)

	s.wg.Add(1)
	go s.acceptLoop(serverCtx, ln)
	return nil
}

func (s *TCPServer) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", observability.Error(err))
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection routes one connection. It always closes conn.
func (s *TCPServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	tracked, err := s.connections.Add(conn)
	if err != nil {
		s.logger.Warn("connection rejected",
			observability.String("remote_addr", conn.RemoteAddr().String()),
			observability.Error(err),
		)
		s.metrics.RecordConnection(s.config.ID, observability.ResultRejected)
		return
	}
	defer s.connections.Remove(tracked.ID)

	s.metrics.ConnectionOpened(s.config.ID)
	defer s.metrics.ConnectionClosed(s.config.ID)

	serverName, preface, err := ExtractSNI(conn, s.config.SNITimeout.Duration())
	if err != nil {
		s.logger.Debug("failed to read server name",
			observability.String("connection_id", tracked.ID),
			observability.Error(err),
		)
		s.metrics.RecordConnection(s.config.ID, observability.ResultUnmatched)
		return
	}

	rc := resolver.NewRequestContext(acceptor.KindTCP, acceptor.Request{
		Host:     serverName,
		ServerID: s.config.ID,
	})
	a, ok := s.resolver.Resolve(rc)
	if !ok {
		s.metrics.RecordConnection(s.config.ID, observability.ResultUnmatched)
		return
	}

	handler, ok := a.Owner().(ConnHandler)
	if !ok {
		s.logger.Warn("matched acceptor has no connection handler",
			observability.String("server_name", serverName),
		)
		s.metrics.RecordConnection(s.config.ID, observability.ResultUnmatched)
		return
	}
	s.metrics.RecordConnection(s.config.ID, observability.ResultMatched)

	connCtx := resolver.NewContext(ctx, rc)
	if err := handler.HandleConn(connCtx, conn, preface); err != nil {
		s.logger.Debug("connection ended with error",
			observability.String("connection_id", tracked.ID),
			observability.String("server_name", serverName),
			observability.Error(err),
		)
	}
}

// Stop closes the listener and waits for active connections, bounded by
// ctx and the configured shutdown timeout. Connections still open when the
// wait ends are closed.
func (s *TCPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	ln, cancel := s.listener, s.cancel
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	s.logger.Info("stopping tcp server",
		observability.Int("active_connections", s.connections.Count()),
	)

	var err error
	if closeErr := ln.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		err = fmt.Errorf("failed to close listener: %w", closeErr)
	}

	if timeout := s.config.ShutdownTimeout.Duration(); timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		closed := s.connections.CloseAll()
		s.logger.Warn("shutdown timeout, closed remaining connections",
			observability.Int("closed", closed),
		)
		<-done
	}
	cancel()

	s.mu.Lock()
	s.listener = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("tcp server stopped")
	return err
}
