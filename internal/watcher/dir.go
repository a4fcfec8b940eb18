package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches the documents directly inside one directory. It uses
// fsnotify when possible and falls back to polling.
type DirWatcher struct {
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	mode      string
}

// New creates a watcher. fsnotify initialization failures select polling.
func New(opts Options) (*DirWatcher, error) {
	opts = opts.WithDefaults()

	w := &DirWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		mode:      "polling",
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		} else {
			w.fsWatcher = fsw
			w.mode = "fsnotify"
		}
	}
	return w, nil
}

// Start watches dir until ctx is done or Stop is called. It blocks.
func (w *DirWatcher) Start(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	go w.forward(ctx)

	if w.fsWatcher != nil {
		err := w.fsWatcher.Add(absDir)
		if err == nil {
			slog.Info("watcher_started", slog.String("dir", absDir), slog.String("mode", "fsnotify"))
			return w.runFsnotify(ctx, absDir)
		}
		slog.Warn("fsnotify_add_failed",
			slog.String("dir", absDir),
			slog.String("error", err.Error()))
		_ = w.fsWatcher.Close()
		w.mu.Lock()
		w.fsWatcher = nil
		w.mode = "polling"
		w.mu.Unlock()
	}

	p, err := newPoller(absDir)
	if err != nil {
		return err
	}
	slog.Info("watcher_started", slog.String("dir", absDir), slog.String("mode", "polling"))
	err = p.run(ctx, w.opts.PollInterval, w.stopCh, w.debouncer.Add, w.emitError)
	if ctx.Err() != nil {
		_ = w.Stop()
	}
	return err
}

func (w *DirWatcher) runFsnotify(ctx context.Context, dir string) error {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(dir, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// handle converts an fsnotify event into a FileEvent for relevant documents.
func (w *DirWatcher) handle(dir string, event fsnotify.Event) {
	if filepath.Dir(event.Name) != dir || !relevant(event.Name) {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      filepath.Base(event.Name),
		Operation: op,
		Timestamp: time.Now(),
	})
}

// forward relays debounced batches to Events.
func (w *DirWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emit(batch)
		}
	}
}

func (w *DirWatcher) emit(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		slog.Warn("watcher_buffer_full", slog.Int("batch_size", len(batch)))
	}
}

func (w *DirWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops watching and closes Events and Errors. Safe to call multiple times.
func (w *DirWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of debounced batches.
func (w *DirWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *DirWatcher) Errors() <-chan error {
	return w.errors
}

// Mode reports "fsnotify" or "polling".
func (w *DirWatcher) Mode() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}
