package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit          int
	lexicalWeight  float64
	semanticWeight float64
	format         string // "text", "json"
}

// searchResponse is the --format json output.
type searchResponse struct {
	Query   string          `json:"query"`
	Weights search.Weights  `json:"weights"`
	Results []search.Result `json:"results"`
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search the index with hybrid scoring.

Lexical (BM25) and semantic (embedding) scores are normalized over the
whole corpus and combined as a weighted sum.

Examples:
  docsearch search "refund policy for damaged goods"
  docsearch search "shipping times" -n 3
  docsearch search "returns" --lexical-weight 0.8 --semantic-weight 0.2
  docsearch search "warranty" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, a, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.top_k)")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", 0, "Weight of the lexical score (default: search.lexical_weight)")
	cmd.Flags().Float64Var(&opts.semanticWeight, "semantic-weight", 0, "Weight of the semantic score (default: search.semantic_weight)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, a *app, query string, opts searchOptions) error {
	if !validFormat(opts.format) {
		return errors.ValidationError(fmt.Sprintf("unknown format %q (want text or json)", opts.format), nil)
	}

	searchOpts := search.SearchOptions{
		TopK:    a.cfg.Search.TopK,
		Weights: weights(a.cfg),
	}
	if cmd.Flags().Changed("limit") {
		searchOpts.TopK = opts.limit
	}
	if cmd.Flags().Changed("lexical-weight") {
		searchOpts.Weights.Lexical = opts.lexicalWeight
	}
	if cmd.Flags().Changed("semantic-weight") {
		searchOpts.Weights.Semantic = opts.semanticWeight
	}

	idx, err := openIndex(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	slog.Info("search_started", slog.String("query", query), slog.Int("top_k", searchOpts.TopK))
	results, err := idx.Search(ctx, query, searchOpts)
	if err != nil {
		slog.Error("search_failed", slog.String("query", query), slog.String("error", err.Error()))
		return err
	}
	slog.Info("search_completed", slog.String("query", query), slog.Int("results", len(results)))

	if strings.EqualFold(opts.format, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchResponse{Query: query, Weights: searchOpts.Weights, Results: results})
	}

	printResults(output.New(cmd.OutOrStdout()), query, results)
	return nil
}

func printResults(out *output.Writer, query string, results []search.Result) {
	if len(results) == 0 {
		out.Statusf("🔍", "No results for %q", query)
		return
	}

	out.Header(fmt.Sprintf("Results for %q", query))
	out.Newline()
	for i, r := range results {
		out.Println(fmt.Sprintf("%d. %s (chunk %d/%d) %.3f %s",
			i+1, r.DocID, r.Metadata.Index+1, r.Metadata.TotalChunks, r.Score, out.Badge(r.Relevance)))
		out.Println(out.Dim(fmt.Sprintf("   %s  lexical %.3f  semantic %.3f",
			r.ChunkID, r.LexicalScore, r.SemanticScore)))
		out.Code(r.Text)
	}
}
