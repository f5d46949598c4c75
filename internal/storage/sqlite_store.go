package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// schemaVersion is stored in PRAGMA user_version. The schema is a single
// key-value table, so there is no migration runner; a newer on-disk version
// than this constant is refused.
const schemaVersion = 1

type SQLiteStore struct {
	path     string
	db       *sql.DB
	mu       sync.Mutex
	watchers watchers
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: path,
	}
}

func (s *SQLiteStore) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	// Seed default settings without clobbering an existing database
	for key, raw := range defaultValues() {
		if _, err := s.db.Exec(
			"INSERT OR IGNORE INTO kv (key, value) VALUES (?, ?)",
			key, string(raw),
		); err != nil {
			return fmt.Errorf("failed to seed default for %s: %w", key, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'petd init' first")
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", version, schemaVersion)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) Get(keys ...string) (map[string]json.RawMessage, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not loaded")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		var value string
		err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read key %s: %w", key, err)
		}
		out[key] = json.RawMessage(value)
	}

	return out, nil
}

func (s *SQLiteStore) Set(values map[string]json.RawMessage) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}

	s.mu.Lock()

	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	batch := make([]Change, 0, len(values))
	for key, raw := range values {
		var old sql.NullString
		err := tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&old)
		if err != nil && err != sql.ErrNoRows {
			tx.Rollback()
			s.mu.Unlock()
			return fmt.Errorf("failed to read key %s: %w", key, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, string(raw),
		); err != nil {
			tx.Rollback()
			s.mu.Unlock()
			return fmt.Errorf("failed to write key %s: %w", key, err)
		}

		change := Change{Key: key, New: append(json.RawMessage(nil), raw...)}
		if old.Valid {
			change.Old = json.RawMessage(old.String)
		}
		batch = append(batch, change)
	}

	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to commit write: %w", err)
	}
	s.mu.Unlock()

	s.watchers.notify(batch)
	return nil
}

func (s *SQLiteStore) Remove(keys ...string) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}

	s.mu.Lock()

	tx, err := s.db.Begin()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var batch []Change
	for _, key := range keys {
		var old string
		err := tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&old)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			tx.Rollback()
			s.mu.Unlock()
			return fmt.Errorf("failed to read key %s: %w", key, err)
		}

		if _, err := tx.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			tx.Rollback()
			s.mu.Unlock()
			return fmt.Errorf("failed to remove key %s: %w", key, err)
		}

		batch = append(batch, Change{Key: key, Old: json.RawMessage(old), New: nil})
	}

	if err := tx.Commit(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	s.mu.Unlock()

	if len(batch) > 0 {
		s.watchers.notify(batch)
	}
	return nil
}

func (s *SQLiteStore) Subscribe(fn func([]Change)) func() {
	return s.watchers.subscribe(fn)
}

func (s *SQLiteStore) GetConfigPath() string {
	return s.path
}

// GetDB exposes the underlying connection for diagnostics.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}
