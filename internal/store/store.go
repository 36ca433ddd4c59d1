// Package store persists the receipt index in SQLite. It is a cache of
// filesystem metadata and derived text, fully rebuildable from the
// source files, so the database is tuned for write throughput over
// durability.
package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sa-retail/strukindex/internal/errors"
)

// Store wraps the SQLite receipt index.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the index database at path. An empty path
// opens an in-memory database for testing.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreOpen, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreOpen, err)
	}

	// Single writer to prevent lock contention; also makes :memory:
	// safe with database/sql pooling.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// The index is deterministically rebuildable from the receipt files,
	// so synchronization is relaxed and the journal kept in memory.
	pragmas := []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA cache_size = -65536", // 64MB (negative = KB)
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(errors.ErrCodeStoreOpen, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates the index table and its secondary indexes.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS receipt_index (
		year          TEXT NOT NULL,
		key           TEXT NOT NULL,
		register      TEXT NOT NULL,
		sequence      TEXT NOT NULL,
		mtime         INTEGER NOT NULL,
		path          TEXT NOT NULL,
		content_index TEXT,
		key_prefix    TEXT,
		UNIQUE (year, key)
	);

	CREATE INDEX IF NOT EXISTS idx_year_mtime    ON receipt_index (year, mtime);
	CREATE INDEX IF NOT EXISTS idx_year_register ON receipt_index (year, register);
	CREATE INDEX IF NOT EXISTS idx_year_key      ON receipt_index (year, key);
	CREATE INDEX IF NOT EXISTS idx_key_prefix    ON receipt_index (key_prefix);
	-- mtime alone serves the date-range query, which is not year-scoped
	CREATE INDEX IF NOT EXISTS idx_mtime         ON receipt_index (mtime);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(errors.ErrCodeStoreOpen, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
