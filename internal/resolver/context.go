package resolver

import (
	"context"
	"sync"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
)

// AttributeAcceptor is the attribute under which the matched acceptor is
// stored on an ExecutionContext.
const AttributeAcceptor = "gateway.acceptor"

// ExecutionContext is the per-request state handed to Resolve.
type ExecutionContext interface {
	Kind() acceptor.Kind
	Request() acceptor.Request
	SetAttribute(key string, value any)
}

// RequestContext is the default ExecutionContext.
type RequestContext struct {
	kind    acceptor.Kind
	request acceptor.Request

	mu    sync.RWMutex
	attrs map[string]any
}

var _ ExecutionContext = (*RequestContext)(nil)

// NewRequestContext creates an execution context for a request of kind.
func NewRequestContext(kind acceptor.Kind, req acceptor.Request) *RequestContext {
	return &RequestContext{kind: kind, request: req}
}

// Kind implements ExecutionContext.
func (c *RequestContext) Kind() acceptor.Kind {
	return c.kind
}

// Request implements ExecutionContext.
func (c *RequestContext) Request() acceptor.Request {
	return c.request
}

// SetAttribute implements ExecutionContext.
func (c *RequestContext) SetAttribute(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attrs == nil {
		c.attrs = make(map[string]any)
	}
	c.attrs[key] = value
}

// Attribute returns the value stored under key.
func (c *RequestContext) Attribute(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.attrs[key]
	return v, ok
}

// Acceptor returns the acceptor stored by Resolve, if any.
func (c *RequestContext) Acceptor() (acceptor.Acceptor, bool) {
	v, ok := c.Attribute(AttributeAcceptor)
	if !ok {
		return nil, false
	}
	a, ok := v.(acceptor.Acceptor)
	return a, ok
}

type requestContextKey struct{}

// NewContext returns a copy of ctx carrying rc. Attributes set on rc later,
// such as the acceptor stored by Resolve, are visible through the copy.
func NewContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the execution context carried by ctx.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// FromContext returns the acceptor stored under AttributeAcceptor on the
// execution context carried by ctx.
func FromContext(ctx context.Context) (acceptor.Acceptor, bool) {
	rc, ok := RequestContextFrom(ctx)
	if !ok {
		return nil, false
	}
	return rc.Acceptor()
}
