package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// chunksOptions holds CLI flags for chunks.
type chunksOptions struct {
	around string
	radius int
	format string
}

func newChunksCmd(a *app) *cobra.Command {
	var opts chunksOptions

	cmd := &cobra.Command{
		Use:   "chunks [doc_id]",
		Short: "Show the chunks of a document in order",
		Long: `Print every chunk of a document in order, or the neighbourhood of one
chunk following its previous/next links.

Examples:
  docsearch chunks policy.md
  docsearch chunks --around policy.md::chunk::3
  docsearch chunks --around policy.md::chunk::3 --radius 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID := ""
			if len(args) == 1 {
				docID = args[0]
			}
			return runChunks(cmd.Context(), cmd, a, docID, opts)
		},
	}

	cmd.Flags().StringVar(&opts.around, "around", "", "Show the chunks around this chunk id instead")
	cmd.Flags().IntVar(&opts.radius, "radius", 1, "Neighbours on each side for --around")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runChunks(ctx context.Context, cmd *cobra.Command, a *app, docID string, opts chunksOptions) error {
	if !validFormat(opts.format) {
		return errors.ValidationError(fmt.Sprintf("unknown format %q (want text or json)", opts.format), nil)
	}
	if docID == "" && opts.around == "" {
		return errors.ValidationError("a document id or --around chunk id is required", nil).
			WithSuggestion("run 'docsearch status' to check the index, or 'docsearch search' to find chunk ids")
	}

	idx, err := openIndex(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	var chunks []store.Chunk
	if opts.around != "" {
		chunks, err = idx.Around(opts.around, opts.radius)
	} else {
		chunks, err = idx.ChunksOf(docID)
	}
	if err != nil {
		return err
	}

	if strings.EqualFold(opts.format, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	out := output.New(cmd.OutOrStdout())
	for _, c := range chunks {
		marker := ""
		if c.ChunkID == opts.around {
			marker = " <"
		}
		out.Header(fmt.Sprintf("%s [%d/%d, %s]%s",
			c.ChunkID, c.Metadata.Index+1, c.Metadata.TotalChunks, c.Metadata.ChunkingStrategy, marker))
		out.Code(c.Text)
	}
	return nil
}
