package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LexicalBackend names a LexicalIndex implementation.
type LexicalBackend string

const (
	// LexicalBackendOkapi is the in-memory Okapi BM25 index (default).
	LexicalBackendOkapi LexicalBackend = "okapi"

	// LexicalBackendSQLite uses SQLite FTS5 bm25() ranking.
	LexicalBackendSQLite LexicalBackend = "sqlite"

	// LexicalBackendBleve uses a Bleve index with BM25 scoring.
	LexicalBackendBleve LexicalBackend = "bleve"
)

// LexicalBackends lists every backend in detection order.
var LexicalBackends = []LexicalBackend{LexicalBackendOkapi, LexicalBackendSQLite, LexicalBackendBleve}

// ParseLexicalBackend validates a backend name. Empty selects okapi.
func ParseLexicalBackend(name string) (LexicalBackend, error) {
	switch LexicalBackend(name) {
	case LexicalBackendOkapi, "":
		return LexicalBackendOkapi, nil
	case LexicalBackendSQLite:
		return LexicalBackendSQLite, nil
	case LexicalBackendBleve:
		return LexicalBackendBleve, nil
	default:
		return "", fmt.Errorf("unknown lexical backend: %s (valid options: okapi, sqlite, bleve)", name)
	}
}

// LexicalPath returns the artifact path of backend inside dir.
func LexicalPath(dir string, backend LexicalBackend) string {
	switch backend {
	case LexicalBackendSQLite:
		return filepath.Join(dir, SQLiteFile)
	case LexicalBackendBleve:
		return filepath.Join(dir, BleveDir)
	default:
		return filepath.Join(dir, OkapiFile)
	}
}

// BuildLexicalIndex builds and persists a lexical index in dir.
func BuildLexicalIndex(ctx context.Context, dir string, backend LexicalBackend, corpus [][]string, cfg BM25Config) (LexicalIndex, error) {
	path := LexicalPath(dir, backend)
	switch backend {
	case LexicalBackendSQLite:
		return BuildSQLiteLexicalIndex(ctx, path, corpus)
	case LexicalBackendBleve:
		return BuildBleveLexicalIndex(ctx, path, corpus)
	case LexicalBackendOkapi, "":
		idx := NewOkapiIndex(corpus, cfg)
		if err := idx.Save(path); err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown lexical backend: %s", backend)
	}
}

// OpenLexicalIndex loads the persisted lexical index of backend from dir.
func OpenLexicalIndex(dir string, backend LexicalBackend) (LexicalIndex, error) {
	path := LexicalPath(dir, backend)
	switch backend {
	case LexicalBackendSQLite:
		return OpenSQLiteLexicalIndex(path)
	case LexicalBackendBleve:
		return OpenBleveLexicalIndex(path)
	case LexicalBackendOkapi, "":
		return LoadOkapiIndex(path)
	default:
		return nil, fmt.Errorf("unknown lexical backend: %s", backend)
	}
}

// DetectLexicalBackend reports which lexical artifact exists in dir,
// or an empty string if there is none.
func DetectLexicalBackend(dir string) LexicalBackend {
	for _, backend := range LexicalBackends {
		if _, err := os.Stat(LexicalPath(dir, backend)); err == nil {
			return backend
		}
	}
	return ""
}
