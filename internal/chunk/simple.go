package chunk

import (
	"strings"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// SimpleChunker emits every non-blank line as its own trimmed chunk.
type SimpleChunker struct{}

// Verify interface implementation at compile time
var _ Chunker = (*SimpleChunker)(nil)

// NewSimpleChunker creates a line chunker.
func NewSimpleChunker() *SimpleChunker {
	return &SimpleChunker{}
}

// Strategy implements Chunker.
func (c *SimpleChunker) Strategy() store.Strategy {
	return store.StrategySimple
}

// Chunk implements Chunker.
func (c *SimpleChunker) Chunk(text string) []string {
	var chunks []string
	for _, line := range splitLines(text) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}
