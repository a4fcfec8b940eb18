package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Document is one source file of the corpus.
type Document struct {
	ID       string // file name, also the doc_id of its chunks
	Path     string
	Content  []byte
	Strategy store.Strategy
	Chunks   int
}

// Corpus is the chunked content of a data directory.
type Corpus struct {
	Documents []Document
	Chunks    []store.Chunk
}

// Options configures corpus loading.
type Options struct {
	// Hierarchical enables heading-aware chunking for markdown files.
	Hierarchical bool
}

// LoadCorpus reads every .md and .txt file directly inside dir, in file name
// order, and chunks it. Documents that yield no chunks are kept in
// Documents (so they count towards the corpus fingerprint) but contribute no
// chunk records.
func LoadCorpus(ctx context.Context, dir string, opts Options) (*Corpus, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorpusUnreadable,
			fmt.Sprintf("cannot read data directory %s", dir), err).
			WithDetail("data_dir", dir)
	}

	corpus := &Corpus{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || !Supported(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(errors.ErrCodeCorpusUnreadable,
				fmt.Sprintf("cannot read %s", path), err).
				WithDetail("path", path)
		}

		doc := ChunkDocument(entry.Name(), path, content, opts.Hierarchical)
		corpus.Documents = append(corpus.Documents, doc.Document)
		corpus.Chunks = append(corpus.Chunks, doc.Records...)

		slog.Debug("document_chunked",
			slog.String("doc_id", entry.Name()),
			slog.String("strategy", string(doc.Document.Strategy)),
			slog.Int("chunks", doc.Document.Chunks))
	}

	return corpus, nil
}

// ChunkedDocument pairs a document with its chunk records.
type ChunkedDocument struct {
	Document Document
	Records  []store.Chunk
}

// ChunkDocument chunks content with the strategy selected for path and builds
// the linked records.
func ChunkDocument(docID, path string, content []byte, hierarchical bool) ChunkedDocument {
	chunker := Select(path, hierarchical)
	texts := chunker.Chunk(string(content))
	records := BuildRecords(docID, path, chunker.Strategy(), texts)

	return ChunkedDocument{
		Document: Document{
			ID:       docID,
			Path:     path,
			Content:  content,
			Strategy: chunker.Strategy(),
			Chunks:   len(records),
		},
		Records: records,
	}
}

// BuildRecords turns the ordered chunk texts of one document into records
// with stable ids, positions and prev/next links.
func BuildRecords(docID, source string, strategy store.Strategy, texts []string) []store.Chunk {
	if len(texts) == 0 {
		return nil
	}

	ids := make([]string, len(texts))
	for i := range texts {
		ids[i] = store.ChunkID(docID, i)
	}

	records := make([]store.Chunk, len(texts))
	for i, text := range texts {
		md := store.ChunkMetadata{
			Source:           source,
			Index:            i,
			TotalChunks:      len(texts),
			ChunkingStrategy: strategy,
		}
		if i > 0 {
			prev := ids[i-1]
			md.PrevChunkID = &prev
		}
		if i < len(texts)-1 {
			next := ids[i+1]
			md.NextChunkID = &next
		}
		records[i] = store.Chunk{
			ChunkID:  ids[i],
			DocID:    docID,
			Text:     text,
			Metadata: md,
		}
	}
	return records
}
