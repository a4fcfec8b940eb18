package index

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Aman-CERP/docsearch/internal/chunk"
	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// ManifestFile describes a built index.
const ManifestFile = "manifest.json"

// manifestVersion is bumped when the artifact layout changes.
const manifestVersion = 1

// Manifest records how and from what an index was built.
type Manifest struct {
	Version      int                    `json:"version"`
	BuildID      string                 `json:"build_id"`
	CreatedAt    time.Time              `json:"created_at"`
	DataDir      string                 `json:"data_dir"`
	Hierarchical bool                   `json:"hierarchical"`
	Backend      store.LexicalBackend   `json:"lexical_backend"`
	BM25         store.BM25Config       `json:"bm25"`
	KeepTags     []string               `json:"keep_tags"`
	Model        string                 `json:"embedding_model"`
	Dimensions   int                    `json:"dimensions"`
	Chunks       int                    `json:"chunks"`
	Documents    int                    `json:"documents"`
	ByStrategy   map[store.Strategy]int `json:"by_strategy"`
	Fingerprint  string                 `json:"corpus_fingerprint"`
}

// SaveManifest writes m to dir/manifest.json atomically.
func SaveManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(dir, ManifestFile)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// LoadManifest reads dir/manifest.json.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, errors.NoIndex(dir, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.CorruptIndex(fmt.Sprintf("malformed %s", ManifestFile), err)
	}
	if m.Version != manifestVersion {
		return nil, errors.CorruptIndex(fmt.Sprintf("unsupported index version %d", m.Version), nil)
	}
	return &m, nil
}

// Fingerprint hashes document names and contents in the given order with
// xxhash64. Identical corpora yield identical fingerprints.
func Fingerprint(docs []chunk.Document) string {
	d := xxhash.New()
	for _, doc := range docs {
		_, _ = d.WriteString(doc.ID)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(strconv.Itoa(len(doc.Content)))
		_, _ = d.Write([]byte{0})
		_, _ = d.Write(doc.Content)
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

// FingerprintDir computes the Fingerprint of the loadable documents in
// dataDir without chunking them.
func FingerprintDir(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.New(errors.ErrCodeCorpusUnreadable, fmt.Sprintf("data directory %s does not exist", dataDir), err)
		}
		return "", errors.New(errors.ErrCodeCorpusUnreadable, fmt.Sprintf("cannot read data directory %s", dataDir), err)
	}

	var docs []chunk.Document
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !chunk.Supported(entry.Name()) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dataDir, entry.Name()))
		if err != nil {
			return "", errors.New(errors.ErrCodeCorpusUnreadable, fmt.Sprintf("cannot read %s", entry.Name()), err)
		}
		docs = append(docs, chunk.Document{ID: entry.Name(), Content: content})
	}
	return Fingerprint(docs), nil
}
