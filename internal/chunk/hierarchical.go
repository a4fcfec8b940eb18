package chunk

import (
	"regexp"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// maxHeadingLevel is the deepest heading level tracked in the lineage stack.
const maxHeadingLevel = 3

// headingPattern matches level 1-3 ATX headings: "# Title", "## Title", "### Title".
var headingPattern = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)

// HierarchicalChunker splits markdown at level 1-3 headings. Every chunk is
// seeded with the full heading lines of its lineage, so a chunk under
// "## Setup" inside "# Guide" starts with both headings.
type HierarchicalChunker struct{}

// Verify interface implementation at compile time
var _ Chunker = (*HierarchicalChunker)(nil)

// NewHierarchicalChunker creates a hierarchical chunker.
func NewHierarchicalChunker() *HierarchicalChunker {
	return &HierarchicalChunker{}
}

// Strategy implements Chunker.
func (c *HierarchicalChunker) Strategy() store.Strategy {
	return store.StrategyHierarchical
}

// Chunk implements Chunker.
//
// A heading line closes the current chunk if it holds any body lines, then
// resets the heading stack below its level and starts the next chunk with the
// remaining lineage. Blank lines are dropped without closing a chunk. The
// buffer left at end of document is always emitted (after trimming), so a
// document without headings becomes a single chunk.
func (c *HierarchicalChunker) Chunk(text string) []string {
	var chunks []string
	var headings [maxHeadingLevel]string
	var buf []string
	hasBody := false

	flush := func() {
		if len(buf) > 0 {
			if joined := strings.TrimSpace(strings.Join(buf, "\n")); joined != "" {
				chunks = append(chunks, joined)
			}
		}
		buf = nil
		hasBody = false
	}

	for _, line := range splitLines(text) {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			if hasBody {
				flush()
			}
			buf = nil

			level := len(m[1])
			headings[level-1] = line
			for i := level; i < maxHeadingLevel; i++ {
				headings[i] = ""
			}
			for _, h := range headings {
				if h != "" {
					buf = append(buf, h)
				}
			}
			continue
		}

		if strings.TrimSpace(line) != "" {
			buf = append(buf, line)
			hasBody = true
		}
	}
	flush()

	return chunks
}
