package index

import "time"

// StatusReport describes the index in a directory relative to its data
// directory.
type StatusReport struct {
	IndexDir  string    `json:"index_dir"`
	DataDir   string    `json:"data_dir"`
	Manifest  *Manifest `json:"manifest"`
	Stale     bool      `json:"stale"`
	CheckedAt time.Time `json:"checked_at"`
}

// Status loads the manifest in indexDir and reports whether the documents in
// dataDir changed since the build. An empty dataDir checks the directory
// recorded in the manifest.
func Status(indexDir, dataDir string) (*StatusReport, error) {
	manifest, err := LoadManifest(indexDir)
	if err != nil {
		return nil, err
	}
	if dataDir == "" {
		dataDir = manifest.DataDir
	}

	fingerprint, err := FingerprintDir(dataDir)
	if err != nil {
		return nil, err
	}

	return &StatusReport{
		IndexDir:  indexDir,
		DataDir:   dataDir,
		Manifest:  manifest,
		Stale:     fingerprint != manifest.Fingerprint,
		CheckedAt: time.Now().UTC(),
	}, nil
}
