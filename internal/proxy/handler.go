package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

const schemeTCP = "tcp"

// Handler serves the traffic accepted for one deployed API.
type Handler struct {
	*reactor.BaseHandler

	target       *url.URL
	address      string
	proxy        *httputil.ReverseProxy
	dialer       *net.Dialer
	drainTimeout time.Duration
	bufferPool   *sync.Pool
	logger       observability.Logger

	mu      sync.Mutex
	stopped bool
	active  sync.WaitGroup
	conns   map[net.Conn]struct{}
}

var (
	_ reactor.Handler = (*Handler)(nil)
	_ http.Handler    = (*Handler)(nil)
)

func newHandler(f *Factory, api *reactor.API) (*Handler, error) {
	target, err := parseTarget(api.Target)
	if err != nil {
		return nil, opError("create", api.ID(), api.Target, err)
	}

	bufferSize := f.bufferSize
	h := &Handler{
		target:       target,
		address:      targetAddress(target),
		dialer:       &net.Dialer{Timeout: f.dialTimeout},
		drainTimeout: f.drainTimeout,
		bufferPool: &sync.Pool{
			New: func() any {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
		logger: f.logger.With(observability.String("api", api.ID())),
		conns:  make(map[net.Conn]struct{}),
	}

	base, err := reactor.NewBaseHandler(api, h)
	if err != nil {
		return nil, err
	}
	h.BaseHandler = base

	if target.Scheme == schemeTCP {
		for _, a := range base.Acceptors() {
			if a.Kind() == acceptor.KindHTTP {
				return nil, opError("create", api.ID(), api.Target,
					fmt.Errorf("%w: tcp target cannot serve http entrypoints", ErrInvalidTargetURL))
			}
		}
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite:       h.rewrite,
		Transport:     f.transport,
		FlushInterval: f.flushInterval,
		ErrorHandler:  h.errorHandler,
	}
	return h, nil
}

// Target returns the backend target URL.
func (h *Handler) Target() *url.URL {
	return h.target
}

// Stop implements reactor.Handler. New connections are refused and active
// traffic is given until ctx is done or the drain timeout elapses, after
// which remaining connections are closed.
func (h *Handler) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()

	if h.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.drainTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		n := h.closeConnections()
		<-done
		h.logger.Warn("drain interrupted, connections closed",
			observability.Int("connections", n),
		)
		return nil
	}
}

// track registers in-flight traffic. It returns false once the handler is
// stopped.
func (h *Handler) track(conn net.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}
	h.active.Add(1)
	if conn != nil {
		h.conns[conn] = struct{}{}
	}
	return true
}

func (h *Handler) untrack(conn net.Conn) {
	h.mu.Lock()
	if conn != nil {
		delete(h.conns, conn)
	}
	h.mu.Unlock()
	h.active.Done()
}

func (h *Handler) closeConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		_ = conn.Close()
	}
	return len(h.conns)
}

// parseTarget accepts http, https and tcp URLs with a host.
func parseTarget(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTargetURL)
	}
	target, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTargetURL, err)
	}
	switch target.Scheme {
	case "http", "https", schemeTCP:
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTargetURL, target.Scheme)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidTargetURL)
	}
	if target.Scheme == schemeTCP && target.Port() == "" {
		return nil, fmt.Errorf("%w: tcp target requires a port", ErrInvalidTargetURL)
	}
	return target, nil
}

// targetAddress returns host:port of target, defaulting the port by scheme.
func targetAddress(target *url.URL) string {
	if target.Port() != "" {
		return target.Host
	}
	port := "80"
	if target.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(target.Hostname(), port)
}

// StripPrefix removes the normalized acceptor path prefix from path. The
// result always starts with '/'.
func StripPrefix(path, prefix string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if !strings.HasSuffix(path, "/") && path+"/" == prefix {
		return "/"
	}
	if strings.HasPrefix(path, prefix) {
		return "/" + path[len(prefix):]
	}
	return path
}

func joinPath(base, rest string) string {
	if base == "" || base == "/" {
		return rest
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rest, "/")
}
