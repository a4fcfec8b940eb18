package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteFile is the artifact name of a persisted SQLiteLexicalIndex.
const SQLiteFile = "lexical.db"

// SQLiteLexicalIndex implements LexicalIndex on an SQLite FTS5 table.
// Row i+1 of the table holds the space-joined tokens of corpus position i,
// and scores come from FTS5's bm25() ranking function.
type SQLiteLexicalIndex struct {
	db   *sql.DB
	path string
	rows int
}

// Verify interface implementation at compile time
var _ LexicalIndex = (*SQLiteLexicalIndex)(nil)

const sqliteLexicalSchema = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- content stores the filtered token stream of one chunk
	CREATE VIRTUAL TABLE IF NOT EXISTS lexical USING fts5(
		content,
		tokenize='unicode61'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// BuildSQLiteLexicalIndex writes a fresh FTS5 index at path from one token list
// per chunk and returns it opened for querying. Any existing file is replaced.
func BuildSQLiteLexicalIndex(ctx context.Context, path string, corpus [][]string) (*SQLiteLexicalIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	db, err := openSQLite(tmpPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteLexicalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := insertCorpus(ctx, db, corpus); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if err := db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}

	return OpenSQLiteLexicalIndex(path)
}

func insertCorpus(ctx context.Context, db *sql.DB, corpus [][]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lexical(rowid, content) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for pos, tokens := range corpus {
		if _, err := stmt.ExecContext(ctx, pos+1, strings.Join(tokens, " ")); err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", pos, err)
		}
	}

	return tx.Commit()
}

// OpenSQLiteLexicalIndex opens an index written by BuildSQLiteLexicalIndex.
func OpenSQLiteLexicalIndex(path string) (*SQLiteLexicalIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if err := validateSQLiteIntegrity(path); err != nil {
		slog.Warn("sqlite_lexical_index_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, err
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM lexical`).Scan(&rows); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	return &SQLiteLexicalIndex{db: db, path: path, rows: rows}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	// IMPORTANT: Use modernc.org/sqlite driver (pure Go, no CGO)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return db, nil
}

// validateSQLiteIntegrity checks that path is a healthy database holding the FTS5 table.
func validateSQLiteIntegrity(path string) error {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='lexical'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'lexical' missing")
	}

	return nil
}

// Score runs an OR query over the distinct tokens. Chunks without a match score 0.
func (s *SQLiteLexicalIndex) Score(ctx context.Context, tokens []string) ([]float64, error) {
	scores := make([]float64, s.rows)

	match := ftsMatchExpr(tokens)
	if match == "" {
		return scores, nil
	}

	// FTS5 bm25() returns negative values where lower = better match
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, bm25(lexical) FROM lexical WHERE lexical MATCH ?`, match)
	if err != nil {
		return nil, fmt.Errorf("lexical query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rowID int
		var score float64
		if err := rows.Scan(&rowID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if rowID < 1 || rowID > s.rows {
			return nil, fmt.Errorf("lexical row %d outside corpus of %d", rowID, s.rows)
		}
		scores[rowID-1] = -score
	}

	return scores, rows.Err()
}

// ftsMatchExpr quotes each distinct token so FTS5 treats it as a plain term.
func ftsMatchExpr(tokens []string) string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " OR ")
}

// Len returns the number of indexed chunks.
func (s *SQLiteLexicalIndex) Len() int {
	return s.rows
}

// Close closes the database.
func (s *SQLiteLexicalIndex) Close() error {
	return s.db.Close()
}
