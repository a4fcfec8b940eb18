package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/watcher"
)

// Watcher Integration Tests - a watched corpus change followed by a rebuild
// is visible to the next loaded index.

func startWatcher(t *testing.T, dir string, opts watcher.Options) *watcher.DirWatcher {
	t.Helper()
	w, err := watcher.New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	go func() { _ = w.Start(ctx, dir) }()
	t.Cleanup(func() { _ = w.Stop() })

	// Give the watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	return w
}

func waitForBatch(t *testing.T, w *watcher.DirWatcher) []watcher.FileEvent {
	t.Helper()
	select {
	case batch := <-w.Events():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher events")
		return nil
	}
}

func TestWatcher_NewDocument_RebuildFindsIt(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, polling := range []bool{false, true} {
		name := "fsnotify"
		if polling {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			// Given: a built index and a watcher on its data directory
			dataDir, indexDir := t.TempDir(), t.TempDir()
			createCorpus(t, dataDir)
			build(t, defaultBuildConfig(dataDir, indexDir))
			w := startWatcher(t, dataDir, watcher.Options{
				DebounceWindow: 100 * time.Millisecond,
				PollInterval:   100 * time.Millisecond,
				ForcePolling:   polling,
			})

			// When: a document is added
			path := filepath.Join(dataDir, "warranty.md")
			require.NoError(t, os.WriteFile(path, []byte("# Warranty\nElectronics carry a two year warranty.\n"), 0o644))

			// Then: the watcher reports it
			batch := waitForBatch(t, w)
			require.NotEmpty(t, batch)
			assert.Equal(t, "warranty.md", batch[0].Path)

			// And: a rebuild makes it searchable
			build(t, defaultBuildConfig(dataDir, indexDir))
			idx := open(t, indexDir)
			results, err := idx.Search(context.Background(), "warranty electronics", balanced)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "warranty.md", results[0].DocID)
		})
	}
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watcher on a corpus directory
	dataDir := t.TempDir()
	w := startWatcher(t, dataDir, watcher.Options{DebounceWindow: 100 * time.Millisecond})

	// When: an unsupported file and then a document are written
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "image.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, ".draft.md"), []byte("hidden"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "notes.txt"), []byte("a note\n"), 0o644))

	// Then: only the document is reported
	batch := waitForBatch(t, w)
	require.Len(t, batch, 1)
	assert.Equal(t, "notes.txt", batch[0].Path)
	assert.Equal(t, watcher.OpCreate, batch[0].Operation)
}
