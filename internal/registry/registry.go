package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

// Registry is the concurrent routing table of all deployed reactables.
type Registry struct {
	factory reactor.HandlerFactory
	logger  observability.Logger
	metrics *observability.Metrics

	// mu serializes writers; readers only touch the sorted sets.
	mu          sync.Mutex
	deployments map[string]*deployment

	httpAcceptors *sortedSet[*acceptor.HTTPAcceptor]
	tcpAcceptors  *sortedSet[*acceptor.TCPAcceptor]
}

// deployment is the registry entry of one reactable identity.
type deployment struct {
	id      string
	handler reactor.Handler
	http    []*acceptor.HTTPAcceptor
	tcp     []*acceptor.TCPAcceptor
}

// Deployment describes a deployed reactable for diagnostics.
type Deployment struct {
	ID        string
	Handler   reactor.Handler
	Acceptors []acceptor.Acceptor
}

// Option is a functional option for configuring the registry.
type Option func(*Registry)

// WithLogger sets the logger for the registry.
func WithLogger(logger observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics for the registry.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// New creates an empty registry whose handlers are built by factory.
func New(factory reactor.HandlerFactory, opts ...Option) *Registry {
	if factory == nil {
		factory = reactor.BaseHandlerFactory
	}

	r := &Registry{
		factory:       factory,
		logger:        observability.NopLogger(),
		deployments:   make(map[string]*deployment),
		httpAcceptors: newSortedSet(acceptor.LessHTTP),
		tcpAcceptors:  newSortedSet(acceptor.LessTCP),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create deploys a reactable. A disabled reactable is ignored. Creating an
// identity that is already deployed replaces its acceptors, as Update does.
func (r *Registry) Create(ctx context.Context, reactable reactor.Reactable) error {
	if !reactable.Enabled() {
		r.logger.Debug("ignoring disabled reactable",
			observability.String("id", reactable.ID()),
		)
		return nil
	}
	return r.deploy(ctx, reactable)
}

// Update replaces the acceptors of a reactable. Updating to a disabled
// reactable removes it. When the new handler cannot be built the previous
// acceptors stay in place and the error is returned.
func (r *Registry) Update(ctx context.Context, reactable reactor.Reactable) error {
	if !reactable.Enabled() {
		return r.RemoveID(ctx, reactable.ID())
	}
	return r.deploy(ctx, reactable)
}

// Remove removes every acceptor of a reactable. Unknown identities are
// ignored.
func (r *Registry) Remove(ctx context.Context, reactable reactor.Reactable) error {
	return r.RemoveID(ctx, reactable.ID())
}

// RemoveID removes every acceptor indexed under id.
func (r *Registry) RemoveID(ctx context.Context, id string) error {
	r.mu.Lock()
	prev, ok := r.deployments[id]
	if ok {
		delete(r.deployments, id)
		r.swap(prev, nil)
	}
	r.recordSizes()
	r.mu.Unlock()

	if !ok {
		return nil
	}

	r.logger.Info("reactable undeployed",
		observability.String("id", id),
		observability.Int("http_acceptors", len(prev.http)),
		observability.Int("tcp_acceptors", len(prev.tcp)),
	)
	return r.stop(ctx, prev)
}

// Clear removes every deployment.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	prev := r.deployments
	r.deployments = make(map[string]*deployment)
	r.httpAcceptors.clear()
	r.tcpAcceptors.clear()
	r.recordSizes()
	r.mu.Unlock()

	r.logger.Info("registry cleared",
		observability.Int("deployments", len(prev)),
	)

	var errs []error
	for _, d := range prev {
		errs = append(errs, r.stop(ctx, d))
	}
	return errors.Join(errs...)
}

// deploy builds and starts a handler for reactable, then atomically swaps
// it in place of the previous deployment of the same identity.
func (r *Registry) deploy(ctx context.Context, reactable reactor.Reactable) error {
	next, err := r.build(ctx, reactable)
	if err != nil {
		r.logger.Error("failed to deploy reactable",
			observability.String("id", reactable.ID()),
			observability.Error(err),
		)
		return err
	}

	r.mu.Lock()
	prev := r.deployments[next.id]
	r.deployments[next.id] = next
	r.swap(prev, next)
	r.recordSizes()
	r.mu.Unlock()

	msg := "reactable deployed"
	if prev != nil {
		msg = "reactable redeployed"
	}
	r.logger.Info(msg,
		observability.String("id", next.id),
		observability.Int("http_acceptors", len(next.http)),
		observability.Int("tcp_acceptors", len(next.tcp)),
	)

	return r.stop(ctx, prev)
}

// build creates the handler of reactable, starts it and splits its
// acceptors by kind.
func (r *Registry) build(ctx context.Context, reactable reactor.Reactable) (*deployment, error) {
	handler, err := r.factory.Create(reactable)
	if err != nil {
		return nil, fmt.Errorf("create handler for %s: %w", reactable.ID(), err)
	}

	d := &deployment{id: reactable.ID(), handler: handler}

	acceptors := handler.Acceptors()
	if len(acceptors) == 0 {
		def, err := acceptor.NewHTTPAcceptor(acceptor.DefaultPath, acceptor.WithOwner(handler))
		if err != nil {
			return nil, err
		}
		acceptors = []acceptor.Acceptor{def}
	}

	for _, a := range acceptors {
		switch typed := a.(type) {
		case *acceptor.HTTPAcceptor:
			d.http = append(d.http, typed)
		case *acceptor.TCPAcceptor:
			d.tcp = append(d.tcp, typed)
		default:
			return nil, fmt.Errorf("%w: unsupported acceptor %T for %s", acceptor.ErrInvalidAcceptor, a, d.id)
		}
	}

	if err := handler.Start(ctx); err != nil {
		return nil, fmt.Errorf("start handler for %s: %w", d.id, err)
	}
	return d, nil
}

// swap replaces the acceptors of prev by those of next. Either may be nil.
// Must be called with r.mu held.
func (r *Registry) swap(prev, next *deployment) {
	var oldHTTP, newHTTP []*acceptor.HTTPAcceptor
	var oldTCP, newTCP []*acceptor.TCPAcceptor
	if prev != nil {
		oldHTTP, oldTCP = prev.http, prev.tcp
	}
	if next != nil {
		newHTTP, newTCP = next.http, next.tcp
	}
	r.httpAcceptors.replace(oldHTTP, newHTTP)
	r.tcpAcceptors.replace(oldTCP, newTCP)
}

// stop stops the handler of a replaced or removed deployment.
func (r *Registry) stop(ctx context.Context, d *deployment) error {
	if d == nil {
		return nil
	}
	if err := d.handler.Stop(ctx); err != nil {
		r.logger.Warn("failed to stop handler",
			observability.String("id", d.id),
			observability.Error(err),
		)
		return fmt.Errorf("stop handler for %s: %w", d.id, err)
	}
	return nil
}

// recordSizes publishes gauges. Must be called with r.mu held.
func (r *Registry) recordSizes() {
	r.metrics.SetAcceptors(acceptor.KindHTTP.String(), r.httpAcceptors.len())
	r.metrics.SetAcceptors(acceptor.KindTCP.String(), r.tcpAcceptors.len())
	r.metrics.SetDeployments(len(r.deployments))
}

// Ascend calls fn for each acceptor of kind, most specific first, until fn
// returns false. It iterates a snapshot and never blocks writers.
func (r *Registry) Ascend(kind acceptor.Kind, fn func(a acceptor.Acceptor) bool) {
	switch kind {
	case acceptor.KindHTTP:
		r.httpAcceptors.ascend(func(a *acceptor.HTTPAcceptor) bool { return fn(a) })
	case acceptor.KindTCP:
		r.tcpAcceptors.ascend(func(a *acceptor.TCPAcceptor) bool { return fn(a) })
	}
}

// Acceptors returns an ordered snapshot of the acceptors of kind.
func (r *Registry) Acceptors(kind acceptor.Kind) []acceptor.Acceptor {
	out := make([]acceptor.Acceptor, 0, r.Len(kind))
	r.Ascend(kind, func(a acceptor.Acceptor) bool {
		out = append(out, a)
		return true
	})
	return out
}

// HTTPAcceptors returns an ordered snapshot of the HTTP acceptors.
func (r *Registry) HTTPAcceptors() []*acceptor.HTTPAcceptor {
	return r.httpAcceptors.items()
}

// TCPAcceptors returns an ordered snapshot of the TCP acceptors.
func (r *Registry) TCPAcceptors() []*acceptor.TCPAcceptor {
	return r.tcpAcceptors.items()
}

// Len returns the number of acceptors of kind.
func (r *Registry) Len(kind acceptor.Kind) int {
	switch kind {
	case acceptor.KindHTTP:
		return r.httpAcceptors.len()
	case acceptor.KindTCP:
		return r.tcpAcceptors.len()
	default:
		return 0
	}
}

// Deployment returns the deployment of id.
func (r *Registry) Deployment(id string) (Deployment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deployments[id]
	if !ok {
		return Deployment{}, false
	}
	return d.describe(), true
}

// Deployments returns every deployment sorted by id.
func (r *Registry) Deployments() []Deployment {
	r.mu.Lock()
	out := make([]Deployment, 0, len(r.deployments))
	for _, d := range r.deployments {
		out = append(out, d.describe())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *deployment) describe() Deployment {
	acceptors := make([]acceptor.Acceptor, 0, len(d.http)+len(d.tcp))
	for _, a := range d.http {
		acceptors = append(acceptors, a)
	}
	for _, a := range d.tcp {
		acceptors = append(acceptors, a)
	}
	return Deployment{ID: d.id, Handler: d.handler, Acceptors: acceptors}
}
