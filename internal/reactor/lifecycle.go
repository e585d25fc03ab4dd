package reactor

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

// EventType is a lifecycle notification kind.
type EventType string

// Lifecycle notifications emitted by the control plane.
const (
	EventDeploy   EventType = "DEPLOY"
	EventUpdate   EventType = "UPDATE"
	EventUndeploy EventType = "UNDEPLOY"
	EventStop     EventType = "STOP"
)

// String implements fmt.Stringer.
func (t EventType) String() string {
	return string(t)
}

// Event is a lifecycle notification. Reactable is nil for EventStop.
type Event struct {
	Type      EventType
	Reactable Reactable
}

// Registrar is the routing table driven by lifecycle events.
type Registrar interface {
	Create(ctx context.Context, r Reactable) error
	Update(ctx context.Context, r Reactable) error
	Remove(ctx context.Context, r Reactable) error
	Clear(ctx context.Context) error
}

// Adapter translates lifecycle events into registrar calls.
type Adapter struct {
	registrar Registrar
	logger    observability.Logger
	metrics   *observability.Metrics
}

// AdapterOption is a functional option for configuring the adapter.
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the logger for the adapter.
func WithAdapterLogger(logger observability.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithAdapterMetrics sets the metrics for the adapter.
func WithAdapterMetrics(metrics *observability.Metrics) AdapterOption {
	return func(a *Adapter) {
		a.metrics = metrics
	}
}

// NewAdapter creates an adapter driving registrar.
func NewAdapter(registrar Registrar, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		registrar: registrar,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle applies a single event.
func (a *Adapter) Handle(ctx context.Context, ev Event) error {
	err := a.dispatch(ctx, ev)
	a.metrics.RecordLifecycleEvent(ev.Type.String(), err)

	if err != nil {
		fields := []observability.Field{
			observability.String("event", ev.Type.String()),
			observability.Error(err),
		}
		if ev.Reactable != nil {
			fields = append(fields, observability.String("id", ev.Reactable.ID()))
		}
		a.logger.Error("lifecycle event failed", fields...)
	}
	return err
}

func (a *Adapter) dispatch(ctx context.Context, ev Event) error {
	if ev.Type == EventStop {
		return a.registrar.Clear(ctx)
	}
	if ev.Reactable == nil {
		return fmt.Errorf("%s event without reactable", ev.Type)
	}

	switch ev.Type {
	case EventDeploy:
		return a.registrar.Create(ctx, ev.Reactable)
	case EventUpdate:
		return a.registrar.Update(ctx, ev.Reactable)
	case EventUndeploy:
		return a.registrar.Remove(ctx, ev.Reactable)
	default:
		return fmt.Errorf("unknown lifecycle event %q", ev.Type)
	}
}

// Run applies events until the channel is closed or ctx is done. Failed
// events are logged and do not stop the loop.
func (a *Adapter) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = a.Handle(ctx, ev)
		}
	}
}
