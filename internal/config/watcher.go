package config

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"loopcast/internal/stream"
)

// Watcher watches the endpoints file and notifies handlers with a freshly
// loaded endpoint list when it changes. Reloads are debounced because most
// editors emit several write events per save.
type Watcher struct {
	path     string
	debounce time.Duration
	handlers []func([]stream.Endpoint)
	onError  func(error)
	mu       sync.RWMutex
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration for file changes. Default is 1500ms.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for reload errors. A failed reload never
// reaches the handlers; the previous endpoint set stays in effect.
func WithErrorHandler(handler func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = handler
	}
}

// NewWatcher creates a watcher for the endpoints file at path.
func NewWatcher(path string, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		debounce: 1500 * time.Millisecond,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler called with the new endpoint list after every
// successful reload. Returns an unsubscribe function.
func (w *Watcher) OnReload(handler func([]stream.Endpoint)) func() {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	idx := len(w.handlers) - 1
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if idx < len(w.handlers) {
			w.handlers[idx] = nil
		}
	}
}

// Start begins watching the endpoints file.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if addErr := fsw.Add(w.path); addErr != nil {
		fsw.Close()
		return addErr
	}

	w.logger.Info("Watching endpoints file", "path", w.path, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and releases the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.cancel()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("Endpoints watcher stopped")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			// Writes cover in-place edits; creates cover editors that
			// replace the file on save.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("Endpoints file change detected", "op", event.Op.String())

				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			w.logger.Info("Endpoints file changed, reloading")
			w.loadAndNotify()
			timerC = nil

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Endpoints watcher error", "error", err)
		}
	}
}

func (w *Watcher) loadAndNotify() {
	endpoints, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload endpoints, keeping previous set", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func([]stream.Endpoint), 0, len(w.handlers))
	for _, h := range w.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(endpoints)
	}
}
