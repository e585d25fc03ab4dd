package reactor

import (
	"context"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/acceptor"
)

// Reactable is a deployable unit contributing acceptors to the gateway.
// Two reactables with the same ID denote the same deployment.
type Reactable interface {
	ID() string
	Enabled() bool
	Entrypoints() []acceptor.Entrypoint
}

// Handler is the runtime counterpart of a deployed Reactable.
type Handler interface {
	acceptor.Owner
	// Acceptors returns the routing rules served by this handler.
	Acceptors() []acceptor.Acceptor
	// Start prepares the handler before its acceptors are published.
	Start(ctx context.Context) error
	// Stop releases the handler after its acceptors are unpublished.
	Stop(ctx context.Context) error
}

// HandlerFactory creates a Handler from a Reactable.
type HandlerFactory interface {
	Create(r Reactable) (Handler, error)
}

// HandlerFactoryFunc adapts a function to a HandlerFactory.
type HandlerFactoryFunc func(r Reactable) (Handler, error)

// Create implements HandlerFactory.
func (f HandlerFactoryFunc) Create(r Reactable) (Handler, error) {
	return f(r)
}

// BaseHandler is a Handler with no runtime behaviour. It is embedded by
// concrete handlers and used where only routing is needed.
type BaseHandler struct {
	id        string
	acceptors []acceptor.Acceptor
}

// NewBaseHandler builds a handler for r whose acceptors are owned by owner.
// When owner is nil the returned handler owns them itself.
func NewBaseHandler(r Reactable, owner acceptor.Owner) (*BaseHandler, error) {
	h := &BaseHandler{id: r.ID()}
	if owner == nil {
		owner = h
	}

	acceptors, err := acceptor.FromEntrypoints(owner, r.Entrypoints())
	if err != nil {
		return nil, err
	}
	h.acceptors = acceptors
	return h, nil
}

// ID implements acceptor.Owner.
func (h *BaseHandler) ID() string {
	return h.id
}

// Acceptors implements Handler.
func (h *BaseHandler) Acceptors() []acceptor.Acceptor {
	return h.acceptors
}

// Start implements Handler.
func (h *BaseHandler) Start(_ context.Context) error {
	return nil
}

// Stop implements Handler.
func (h *BaseHandler) Stop(_ context.Context) error {
	return nil
}

// BaseHandlerFactory creates BaseHandlers.
var BaseHandlerFactory HandlerFactory = HandlerFactoryFunc(func(r Reactable) (Handler, error) {
	return NewBaseHandler(r, nil)
})
