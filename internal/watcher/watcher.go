// Package watcher reports changes to the documents of a data directory so the
// index can be rebuilt while `docsearch index --watch` runs.
//
// fsnotify is used when available; polling is the fallback for file systems
// that do not deliver notifications (network mounts, some container volumes).
// Events are debounced so an editor save or a bulk copy triggers one rebuild.
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Start(ctx, dataDir) }()
//	for batch := range w.Events() {
//	    // rebuild
//	}
package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/chunk"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new document was created.
	OpCreate Operation = iota
	// OpModify indicates an existing document was modified.
	OpModify
	// OpDelete indicates a document was deleted.
	OpDelete
	// OpRename indicates a document was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one document of the data directory.
type FileEvent struct {
	// Path is the file name relative to the data directory.
	Path string

	Operation Operation
	Timestamp time.Time
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	// Default: 500ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval in polling mode.
	// Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel.
	// Default: 16
	EventBufferSize int

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// relevant reports whether name is a document the indexer would load.
// Hidden files and editor swap files are skipped.
func relevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return chunk.Supported(base)
}
