package proxy

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

const (
	defaultDialTimeout  = 10 * time.Second
	defaultDrainTimeout = 30 * time.Second
	defaultBufferSize   = 32 * 1024
)

// Factory creates proxy handlers for API definitions.
type Factory struct {
	logger        observability.Logger
	transport     http.RoundTripper
	flushInterval time.Duration
	dialTimeout   time.Duration
	drainTimeout  time.Duration
	bufferSize    int
}

var _ reactor.HandlerFactory = (*Factory)(nil)

// Option is a functional option for configuring the factory.
type Option func(*Factory)

// WithLogger sets the logger passed to created handlers.
func WithLogger(logger observability.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithTransport sets the round tripper used to reach HTTP targets.
func WithTransport(transport http.RoundTripper) Option {
	return func(f *Factory) {
		f.transport = transport
	}
}

// WithFlushInterval sets the flush interval of the reverse proxy.
func WithFlushInterval(interval time.Duration) Option {
	return func(f *Factory) {
		f.flushInterval = interval
	}
}

// WithDialTimeout sets the timeout for dialing TCP targets.
func WithDialTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		f.dialTimeout = timeout
	}
}

// WithDrainTimeout bounds how long Stop waits for active traffic.
func WithDrainTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		f.drainTimeout = timeout
	}
}

// WithBufferSize sets the copy buffer size of TCP relays.
func WithBufferSize(size int) Option {
	return func(f *Factory) {
		if size > 0 {
			f.bufferSize = size
		}
	}
}

// NewFactory creates a new handler factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		logger:       observability.NopLogger(),
		transport:    http.DefaultTransport,
		dialTimeout:  defaultDialTimeout,
		drainTimeout: defaultDrainTimeout,
		bufferSize:   defaultBufferSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create implements reactor.HandlerFactory. Reactables other than API
// definitions get a routing-only handler.
func (f *Factory) Create(r reactor.Reactable) (reactor.Handler, error) {
	api, ok := r.(*reactor.API)
	if !ok {
		return reactor.NewBaseHandler(r, nil)
	}
	return newHandler(f, api)
}
