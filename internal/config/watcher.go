package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vyrodovalexey/avapigw-acceptor/internal/observability"
)

const defaultDebounceDelay = 100 * time.Millisecond

// ConfigCallback receives every newly applied configuration.
type ConfigCallback func(*GatewayConfig)

// ErrorCallback receives watch and reload failures.
type ErrorCallback func(error)

// Watcher reloads a configuration file when it changes on disk. Bursts of
// file events are debounced and rewrites that leave the content unchanged
// are ignored.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	onChange ConfigCallback
	onError  ErrorCallback
	logger   observability.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current *GatewayConfig
	digest  [sha256.Size]byte
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must stay quiet before a reload.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = delay
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the callback receiving reload failures.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.onError = callback
	}
}

// NewWatcher creates a watcher for the configuration file at path. onChange
// may be nil.
func NewWatcher(path string, onChange ConfigCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		path:     absPath,
		fs:       fs,
		onChange: onChange,
		logger:   observability.NopLogger(),
		debounce: defaultDebounceDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start loads the file and watches it until ctx is done or Stop is called.
// The file must load and validate. Starting twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if err := w.load(); err != nil {
		_ = w.fs.Close()
		return err
	}
	// The directory is watched so replacing the file (rename over it) is seen.
	if err := w.fs.Add(filepath.Dir(w.path)); err != nil {
		_ = w.fs.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.started = true

	w.logger.Info("watching configuration file", observability.String("path", w.path))
	go w.loop(ctx, w.done)
	return nil
}

// load applies the file without notifying. The caller holds w.mu.
func (w *Watcher) load() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", w.path, err)
	}
	cfg, err := w.parse(data)
	if err != nil {
		return err
	}
	w.current, w.digest = cfg, sha256.Sum256(data)
	return nil
}

// Stop ends watching and releases the file watcher. It is safe to call
// more than once, and without a successful Start.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return w.fs.Close()
}

// GetLastConfig returns the last configuration that loaded and validated.
func (w *Watcher) GetLastConfig() *GatewayConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// ForceReload reloads the file now, even when its content is unchanged.
func (w *Watcher) ForceReload() error {
	return w.reload(true)
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("configuration watcher stopped")
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.logger.Debug("configuration file event",
					observability.String("path", event.Name),
					observability.String("op", event.Op.String()),
				)
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.fail("configuration watcher error", err)

		case <-timer.C:
			_ = w.reload(false)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	return filepath.Clean(event.Name) == w.path &&
		(event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create))
}

// reload applies the file and notifies onChange. An unchanged file is
// skipped unless force is set.
func (w *Watcher) reload(force bool) error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		err = fmt.Errorf("failed to read config file %s: %w", w.path, err)
		w.fail("configuration reload failed", err)
		return err
	}

	digest := sha256.Sum256(data)
	w.mu.RLock()
	unchanged := w.current != nil && digest == w.digest
	w.mu.RUnlock()
	if unchanged && !force {
		w.logger.Debug("configuration file content unchanged", observability.String("path", w.path))
		return nil
	}

	cfg, err := w.parse(data)
	if err != nil {
		w.fail("configuration reload failed", err)
		return err
	}

	w.mu.Lock()
	w.current, w.digest = cfg, digest
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", observability.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
	return nil
}

func (w *Watcher) parse(data []byte) (*GatewayConfig, error) {
	cfg, err := NewLoader().LoadData(w.path, data)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (w *Watcher) fail(msg string, err error) {
	w.logger.Error(msg, observability.String("path", w.path), observability.Error(err))
	if w.onError != nil {
		w.onError(err)
	}
}
