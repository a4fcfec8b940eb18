package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index to an MCP client over stdio",
		Long: `Start an MCP server on stdin/stdout exposing the search, chunks_of and
index_status tools.

Logs go to ~/.docsearch/logs/ only; stdout carries protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	idx, err := openIndex(ctx, a.cfg)
	if err != nil {
		slog.Error("serve_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = idx.Close() }()

	indexDir, dataDir := a.cfg.Paths.IndexDir, a.cfg.Paths.DataDir
	srv, err := mcp.NewServer(idx.Engine, mcp.Options{
		TopK:    a.cfg.Search.TopK,
		Weights: weights(a.cfg),
		Status: func() (*index.StatusReport, error) {
			return index.Status(indexDir, dataDir)
		},
	})
	if err != nil {
		return err
	}

	err = srv.Serve(ctx)
	if ctx.Err() != nil {
		slog.Info("mcp_server_stopped")
		return nil
	}
	return err
}
