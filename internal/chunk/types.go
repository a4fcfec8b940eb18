// Package chunk splits documents into ordered, context-preserving chunks and
// turns them into linked chunk records.
package chunk

import (
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/docsearch/internal/store"
)

// Chunker splits document text into an ordered sequence of chunk texts.
// Implementations are deterministic: identical input yields identical output.
type Chunker interface {
	Chunk(text string) []string
	Strategy() store.Strategy
}

// Supported document extensions.
const (
	ExtMarkdown = ".md"
	ExtText     = ".txt"
)

// Supported reports whether a file name has a loadable extension.
func Supported(name string) bool {
	return strings.HasSuffix(name, ExtMarkdown) || strings.HasSuffix(name, ExtText)
}

// Select returns the chunker for a document: hierarchical for markdown when
// hierarchical chunking is enabled, simple otherwise.
func Select(path string, hierarchical bool) Chunker {
	if hierarchical && filepath.Ext(path) == ExtMarkdown {
		return NewHierarchicalChunker()
	}
	return NewSimpleChunker()
}

// splitLines splits text on newlines after normalizing CRLF line endings.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
