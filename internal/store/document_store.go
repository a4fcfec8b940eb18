package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// MetadataFile is the chunk metadata artifact name inside an index directory.
const MetadataFile = "metadata.json"

// DocumentStore holds the canonical ordered collection of chunks.
// A chunk's position in the store is the row both indices are keyed by.
// The store is immutable after construction and safe for concurrent reads.
// Chunks go in and come out as deep copies.
type DocumentStore struct {
	chunks []Chunk
	byID   map[string]int
	byDoc  map[string][]int // positions sorted by chunk index
	docIDs []string
}

// NewDocumentStore validates chunks and builds the lookup tables.
//
// Chunks of one document may appear anywhere in the slice, but per document the
// indices must be exactly 0..N-1, total_chunks must equal N, and prev/next links
// must name the neighbouring chunks. Chunk ids must be unique. Violations are
// reported as corrupt index errors; an empty slice as an empty corpus error.
func NewDocumentStore(chunks []Chunk) (*DocumentStore, error) {
	if len(chunks) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyCorpus, "corpus contains no chunks", nil).
			WithSuggestion("Add .md or .txt files to the data directory and rebuild")
	}

	s := &DocumentStore{
		chunks: make([]Chunk, len(chunks)),
		byID:   make(map[string]int, len(chunks)),
		byDoc:  make(map[string][]int),
	}
	for i, c := range chunks {
		s.chunks[i] = c.Clone()
	}

	for pos, c := range s.chunks {
		if c.ChunkID == "" || c.DocID == "" {
			return nil, errors.CorruptIndex(fmt.Sprintf("chunk at position %d has empty chunk_id or doc_id", pos), nil)
		}
		if prev, dup := s.byID[c.ChunkID]; dup {
			return nil, errors.CorruptIndex(
				fmt.Sprintf("duplicate chunk_id %q at positions %d and %d", c.ChunkID, prev, pos), nil).
				WithDetail("chunk_id", c.ChunkID)
		}
		s.byID[c.ChunkID] = pos
		s.byDoc[c.DocID] = append(s.byDoc[c.DocID], pos)
	}

	for docID, positions := range s.byDoc {
		sort.SliceStable(positions, func(i, j int) bool {
			return s.chunks[positions[i]].Metadata.Index < s.chunks[positions[j]].Metadata.Index
		})
		if err := s.validateDocument(docID, positions); err != nil {
			return nil, err
		}
		s.docIDs = append(s.docIDs, docID)
	}
	sort.Strings(s.docIDs)

	return s, nil
}

func (s *DocumentStore) validateDocument(docID string, positions []int) error {
	n := len(positions)
	for want, pos := range positions {
		c := s.chunks[pos]
		md := c.Metadata
		if md.Index != want {
			return errors.CorruptIndex(
				fmt.Sprintf("document %q: chunk indices are not contiguous (expected %d, found %d)", docID, want, md.Index), nil).
				WithDetail("doc_id", docID)
		}
		if md.TotalChunks != n {
			return errors.CorruptIndex(
				fmt.Sprintf("document %q: chunk %q declares total_chunks=%d, document has %d", docID, c.ChunkID, md.TotalChunks, n), nil).
				WithDetail("doc_id", docID)
		}

		var wantPrev, wantNext *string
		if want > 0 {
			wantPrev = &s.chunks[positions[want-1]].ChunkID
		}
		if want < n-1 {
			wantNext = &s.chunks[positions[want+1]].ChunkID
		}
		if !sameLink(md.PrevChunkID, wantPrev) || !sameLink(md.NextChunkID, wantNext) {
			return errors.CorruptIndex(
				fmt.Sprintf("document %q: chunk %q has inconsistent prev/next links", docID, c.ChunkID), nil).
				WithDetail("chunk_id", c.ChunkID)
		}
	}
	return nil
}

func sameLink(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Len returns the number of chunks (corpus positions).
func (s *DocumentStore) Len() int {
	return len(s.chunks)
}

// DocumentCount returns the number of distinct documents.
func (s *DocumentStore) DocumentCount() int {
	return len(s.docIDs)
}

// At returns the chunk at corpus position pos.
func (s *DocumentStore) At(pos int) Chunk {
	return s.chunks[pos].Clone()
}

// ByID looks up a chunk by its chunk id.
func (s *DocumentStore) ByID(chunkID string) (Chunk, bool) {
	pos, ok := s.byID[chunkID]
	if !ok {
		return Chunk{}, false
	}
	return s.chunks[pos].Clone(), true
}

// ChunksOf returns the chunks of docID ordered by index, or nil for an unknown document.
func (s *DocumentStore) ChunksOf(docID string) []Chunk {
	positions, ok := s.byDoc[docID]
	if !ok {
		return nil
	}
	out := make([]Chunk, len(positions))
	for i, pos := range positions {
		out[i] = s.chunks[pos].Clone()
	}
	return out
}

// DocIDs returns the document ids in lexical order.
func (s *DocumentStore) DocIDs() []string {
	out := make([]string, len(s.docIDs))
	copy(out, s.docIDs)
	return out
}

// Chunks returns a copy of all chunks in corpus order.
func (s *DocumentStore) Chunks() []Chunk {
	out := make([]Chunk, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Clone()
	}
	return out
}

// Texts returns the chunk texts in corpus order.
func (s *DocumentStore) Texts() []string {
	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.Text
	}
	return out
}

// CountByStrategy tallies chunks per chunking strategy.
func (s *DocumentStore) CountByStrategy() map[Strategy]int {
	counts := make(map[Strategy]int)
	for _, c := range s.chunks {
		counts[c.Metadata.ChunkingStrategy]++
	}
	return counts
}

// SaveMetadata writes the chunk records as indented JSON to dir/metadata.json.
// The file is written atomically (temp file + rename).
func SaveMetadata(dir string, chunks []Chunk) error {
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, MetadataFile), data)
}

// LoadMetadata reads dir/metadata.json and builds a validated DocumentStore.
// A missing or unreadable file is reported as a missing index, undecodable or
// inconsistent records as a corrupt index.
func LoadMetadata(dir string) (*DocumentStore, error) {
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NoIndex(dir, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, errors.CorruptIndex(fmt.Sprintf("malformed %s", MetadataFile), err)
	}

	return NewDocumentStore(chunks)
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
