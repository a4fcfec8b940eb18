package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
)

func newStatusCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status and freshness",
		Long: `Show what the index contains, how it was built, and whether the
documents in the data directory changed since.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, a, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStatus(cmd *cobra.Command, a *app, format string) error {
	if !validFormat(format) {
		return errors.ValidationError(fmt.Sprintf("unknown format %q (want text or json)", format), nil)
	}

	report, err := index.Status(a.cfg.Paths.IndexDir, a.cfg.Paths.DataDir)
	if err != nil {
		return err
	}

	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	m := report.Manifest
	out := output.New(cmd.OutOrStdout())
	out.Header("Index status")
	out.KeyValue("Index", report.IndexDir)
	out.KeyValue("Data", report.DataDir)
	out.KeyValue("Build", m.BuildID)
	out.KeyValue("Built", m.CreatedAt.Local().Format(time.DateTime))
	out.KeyValue("Documents", m.Documents)
	out.KeyValue("Chunks", m.Chunks)
	out.KeyValue("Strategies", formatStrategies(m.ByStrategy))
	out.KeyValue("Lexical", m.Backend)
	out.KeyValue("Embeddings", fmt.Sprintf("%s (%d dims)", m.Model, m.Dimensions))
	out.Newline()

	if report.Stale {
		out.Warning("Documents changed since the last build. Run 'docsearch index' to refresh.")
	} else {
		out.Success("Index is up to date")
	}
	return nil
}

func formatStrategies(counts map[store.Strategy]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for s, n := range counts {
		parts = append(parts, fmt.Sprintf("%s %d", s, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
