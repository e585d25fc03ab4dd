package controlplane

import (
	"context"
	"errors"
	"sync"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

// Source produces lifecycle events until ctx is done.
type Source interface {
	Name() string
	Run(ctx context.Context, events chan<- reactor.Event) error
}

// Run feeds the events of every source into adapter and returns once ctx
// is done and all sources have returned. A failing source does not stop
// the others.
func Run(ctx context.Context, adapter *reactor.Adapter, logger observability.Logger, sources ...Source) error {
	if logger == nil {
		logger = observability.NopLogger()
	}

	events := make(chan reactor.Event)
	adapterDone := make(chan struct{})
	go func() {
		defer close(adapterDone)
		adapter.Run(ctx, events)
	}()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if err := src.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event source failed",
					observability.String("source", src.Name()),
					observability.Error(err),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(src)
	}

	wg.Wait()
	close(events)
	<-adapterDone

	return errors.Join(errs...)
}

// send delivers ev unless ctx is done first.
func send(ctx context.Context, events chan<- reactor.Event, ev reactor.Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
