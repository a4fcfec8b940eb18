package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/watcher"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	dataDir string
	outDir  string
	simple  bool
	backend string
	watch   bool
}

func newIndexCmd(a *app) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the search index from a document directory",
		Long: `Chunk every .md and .txt file in the data directory, then write the
chunk records, the lexical index, the vector index and a manifest to the
output directory.

Examples:
  docsearch index
  docsearch index --data ./docs --out ./index_output
  docsearch index --simple --backend sqlite
  docsearch index --backend bleve
  docsearch index --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, a, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dataDir, "data", "", "Directory of .md and .txt documents (default: paths.data_dir)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Index output directory (default: paths.index_dir)")
	cmd.Flags().BoolVar(&opts.simple, "simple", false, "Split every file line by line, ignoring markdown headings")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Lexical backend: okapi, sqlite, bleve (default: lexical.backend)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rebuild when documents change")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, a *app, opts indexOptions) error {
	cfg := *a.cfg
	if opts.dataDir != "" {
		cfg.Paths.DataDir = opts.dataDir
	}
	if opts.outDir != "" {
		cfg.Paths.IndexDir = opts.outDir
	}
	if opts.simple {
		cfg.Chunking.Hierarchical = false
	}
	if opts.backend != "" {
		cfg.Lexical.Backend = opts.backend
	}

	bc, err := buildConfig(&cfg)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(ctx, &cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	out := output.New(cmd.OutOrStdout())
	out.Statusf("📂", "Indexing %s -> %s", bc.DataDir, bc.IndexDir)

	result, err := build(ctx, out, embedder, bc)
	if err != nil {
		return err
	}
	printBuildSummary(out, result)

	if !opts.watch {
		return nil
	}
	return watchAndRebuild(ctx, out, embedder, bc)
}

// build runs one index build, drawing a progress bar on terminals.
func build(ctx context.Context, out *output.Writer, embedder embed.Embedder, bc index.BuildConfig) (*index.BuildResult, error) {
	var progress index.ProgressFunc
	if out.UseColor() {
		var mu sync.Mutex
		progress = func(stage string, done, total int) {
			mu.Lock()
			defer mu.Unlock()
			out.Progress(done, total, stage)
		}
	}

	return index.NewBuilder(embedder, newTokenizer(), progress).Build(ctx, bc)
}

func printBuildSummary(out *output.Writer, result *index.BuildResult) {
	m := result.Manifest
	out.Successf("Indexed %d chunks from %d documents in %s",
		m.Chunks, m.Documents, result.Duration.Round(time.Millisecond))
	out.Statusf("📊", "Chunking: %d hierarchical, %d simple",
		m.ByStrategy[store.StrategyHierarchical], m.ByStrategy[store.StrategySimple])
	out.Statusf("🔧", "Lexical backend: %s, embeddings: %s (%d dims)", m.Backend, m.Model, m.Dimensions)
	for _, doc := range result.EmptyDocuments {
		out.Warningf("%s produced no chunks", doc)
	}
}

// watchAndRebuild rebuilds the index after each debounced batch of document
// changes until ctx is cancelled. Failed rebuilds are reported and the
// previous index stays in place.
func watchAndRebuild(ctx context.Context, out *output.Writer, embedder embed.Embedder, bc index.BuildConfig) error {
	w, err := watcher.New(watcher.DefaultOptions())
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, bc.DataDir) }()

	out.Statusf("👀", "Watching %s for changes (%s), Ctrl+C to stop", bc.DataDir, w.Mode())

	for {
		select {
		case <-ctx.Done():
			out.Status("👋", "Stopped watching")
			return nil

		case err := <-startErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watcher stopped: %w", err)

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))

		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, ev := range batch {
				slog.Info("document_changed",
					slog.String("path", ev.Path),
					slog.String("operation", ev.Operation.String()))
			}
			out.Statusf("🔄", "%d document(s) changed, rebuilding", len(batch))

			result, err := build(ctx, out, embedder, bc)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				out.Errorf("Rebuild failed: %v", err)
				continue
			}
			printBuildSummary(out, result)
		}
	}
}
