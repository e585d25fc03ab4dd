package resolver

import (
	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

// Source provides ordered acceptors of a kind.
type Source interface {
	Ascend(kind acceptor.Kind, fn func(a acceptor.Acceptor) bool)
}

// Resolver finds the acceptor serving a request. It never mutates its source.
type Resolver struct {
	source  Source
	logger  observability.Logger
	metrics *observability.Metrics
}

// Option is a functional option for configuring the resolver.
type Option func(*Resolver)

// WithLogger sets the logger for the resolver.
func WithLogger(logger observability.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics for the resolver.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// New creates a resolver reading from source.
func New(source Source, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the acceptor for the request carried by ctx. On a match the
// acceptor is stored on ctx under AttributeAcceptor; otherwise ctx is left
// untouched.
func (r *Resolver) Resolve(ctx ExecutionContext) (acceptor.Acceptor, bool) {
	a, ok := r.resolve(ctx.Kind(), ctx.Request())
	if ok {
		ctx.SetAttribute(AttributeAcceptor, a)
	}
	return a, ok
}

// ResolveHTTP finds the HTTP acceptor for host and path received by serverID.
func (r *Resolver) ResolveHTTP(host, path, serverID string) (*acceptor.HTTPAcceptor, bool) {
	a, ok := r.resolve(acceptor.KindHTTP, acceptor.Request{Host: host, Path: path, ServerID: serverID})
	if !ok {
		return nil, false
	}
	h, ok := a.(*acceptor.HTTPAcceptor)
	return h, ok
}

// ResolveTCP finds the TCP acceptor for host received by serverID.
func (r *Resolver) ResolveTCP(host, serverID string) (*acceptor.TCPAcceptor, bool) {
	a, ok := r.resolve(acceptor.KindTCP, acceptor.Request{Host: host, ServerID: serverID})
	if !ok {
		return nil, false
	}
	t, ok := a.(*acceptor.TCPAcceptor)
	return t, ok
}

func (r *Resolver) resolve(kind acceptor.Kind, req acceptor.Request) (acceptor.Acceptor, bool) {
	var matched acceptor.Acceptor
	r.source.Ascend(kind, func(a acceptor.Acceptor) bool {
		if a.Accept(req) {
			matched = a
			return false
		}
		return true
	})

	r.metrics.RecordResolution(kind.String(), matched != nil)
	if matched == nil {
		r.logger.Debug("no acceptor matched",
			observability.String("kind", kind.String()),
			observability.String("host", req.Host),
			observability.String("path", req.Path),
			observability.String("server_id", req.ServerID),
		)
		return nil, false
	}
	return matched, true
}
