package controlplane

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/config"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
	"github.com/vyrodovalexey/avapigw-acceptor/internal/reactor"
)

// FileSource emits the API definitions of a configuration file and the
// differences introduced by every later change of the file.
type FileSource struct {
	path     string
	logger   observability.Logger
	debounce time.Duration

	mu      sync.Mutex
	current map[string]reactor.API
}

// FileOption configures a FileSource.
type FileOption func(*FileSource)

// WithFileLogger sets the logger.
func WithFileLogger(logger observability.Logger) FileOption {
	return func(s *FileSource) {
		s.logger = logger
	}
}

// WithDebounce sets the delay between a file change and its reload.
func WithDebounce(delay time.Duration) FileOption {
	return func(s *FileSource) {
		s.debounce = delay
	}
}

// NewFileSource creates a source for the configuration file at path.
func NewFileSource(path string, opts ...FileOption) *FileSource {
	s := &FileSource{
		path:    path,
		logger:  observability.NopLogger(),
		current: make(map[string]reactor.API),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Run implements Source. It emits the APIs of the current file, then
// watches the file until ctx is done. An invalid file on start is an error;
// invalid later revisions are logged and skipped.
func (s *FileSource) Run(ctx context.Context, events chan<- reactor.Event) error {
	watchOpts := []config.WatcherOption{
		config.WithLogger(s.logger),
		config.WithErrorCallback(func(err error) {
			s.logger.Warn("configuration change ignored",
				observability.String("path", s.path),
				observability.Error(err),
			)
		}),
	}
	if s.debounce > 0 {
		watchOpts = append(watchOpts, config.WithDebounceDelay(s.debounce))
	}

	watcher, err := config.NewWatcher(s.path, func(cfg *config.GatewayConfig) {
		if err := s.apply(ctx, cfg.Spec.APIs, events); err != nil {
			s.logger.Debug("configuration change not delivered", observability.Error(err))
		}
	}, watchOpts...)
	if err != nil {
		return fmt.Errorf("failed to create watcher for %s: %w", s.path, err)
	}

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher for %s: %w", s.path, err)
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			s.logger.Warn("failed to stop watcher", observability.Error(err))
		}
	}()

	if err := s.apply(ctx, watcher.GetLastConfig().Spec.APIs, events); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// apply emits the events that turn the last applied API set into apis.
func (s *FileSource) apply(ctx context.Context, apis []reactor.API, events chan<- reactor.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := make([]reactor.API, 0, len(s.current))
	for _, api := range s.current {
		prev = append(prev, api)
	}

	diff := Diff(prev, apis)
	if len(diff) > 0 {
		s.logger.Info("configuration APIs changed",
			observability.String("path", s.path),
			observability.Int("events", len(diff)),
		)
	}

	for _, ev := range diff {
		if err := send(ctx, events, ev); err != nil {
			return err
		}
		api := ev.Reactable.(*reactor.API)
		if ev.Type == reactor.EventUndeploy {
			delete(s.current, api.ID())
		} else {
			s.current[api.ID()] = *api
		}
	}
	return nil
}

// Diff returns the events turning the prev API set into next, matching
// definitions by id. Undeploys come first, in id order, followed by
// updates and deploys in the order of next. Unchanged definitions yield
// no event.
func Diff(prev, next []reactor.API) []reactor.Event {
	before := make(map[string]*reactor.API, len(prev))
	for i := range prev {
		before[prev[i].ID()] = &prev[i]
	}

	seen := make(map[string]struct{}, len(next))
	var deploys []reactor.Event
	for i := range next {
		api := next[i]
		seen[api.ID()] = struct{}{}

		old, ok := before[api.ID()]
		switch {
		case !ok:
			deploys = append(deploys, reactor.Event{Type: reactor.EventDeploy, Reactable: &api})
		case !old.Equal(&api):
			deploys = append(deploys, reactor.Event{Type: reactor.EventUpdate, Reactable: &api})
		}
	}

	var removed []reactor.Event
	for id, old := range before {
		if _, ok := seen[id]; !ok {
			api := *old
			removed = append(removed, reactor.Event{Type: reactor.EventUndeploy, Reactable: &api})
		}
	}
	slices.SortFunc(removed, func(a, b reactor.Event) int {
		return strings.Compare(a.Reactable.ID(), b.Reactable.ID())
	})

	return append(removed, deploys...)
}
