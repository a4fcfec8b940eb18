package mcp

import (
	"fmt"
	"strings"
)

// FormatSearchResults renders results as markdown for the text content of a
// search call.
func FormatSearchResults(query string, results []ResultOutput) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. %s (chunk %d/%d, score: %.2f, %s)\n",
			i+1, r.DocID, r.Index+1, r.TotalChunks, r.Score, r.Relevance)
		fmt.Fprintf(&sb, "`%s`\n\n", r.ChunkID)
		fmt.Fprintf(&sb, "```text\n%s\n```\n\n", r.Text)
	}
	return sb.String()
}

// FormatChunks renders chunks in order, separated by rules.
func FormatChunks(chunks []ChunkOutput) string {
	if len(chunks) == 0 {
		return "No chunks."
	}

	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&sb, "**%s**\n\n%s\n", c.ChunkID, c.Text)
	}
	return sb.String()
}
