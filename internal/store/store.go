// Package store is the agent's local progress store: a versioned,
// namespaced key-value table in an embedded SQLite database. It is mutated
// only by the owning process; there is no cross-process locking.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"leettrack-sync/internal/domain"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	VersionKey        = "leetcode-tracker-version"
	ProgressKey       = "leetcode-tracker-progress-v3"
	LegacyProgressKey = "leetcode-tracker-progress"
)

type Store struct {
	db *sqlx.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %v", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %v", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %v", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM kv WHERE key = $1", key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %v", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %v", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %v", key, err)
	}
	return nil
}

// LoadProgress reads the current progress snapshot, migrating the legacy
// key once if present. A dated backup of the legacy value is written before
// the legacy key is removed. Malformed legacy data falls back to defaults
// without failing.
func (s *Store) LoadProgress(defaults []domain.TopicProgress) ([]domain.TopicProgress, error) {
	raw, found, err := s.Get(ProgressKey)
	if err != nil {
		return nil, err
	}

	if found {
		var progress []domain.TopicProgress
		if err := json.Unmarshal([]byte(raw), &progress); err != nil {
			return nil, fmt.Errorf("failed to parse stored progress: %v", err)
		}
		return progress, nil
	}

	progress, err := s.migrateLegacy(defaults)
	if err != nil {
		return nil, err
	}

	if err := s.SaveProgress(progress); err != nil {
		return nil, err
	}

	return progress, nil
}

func (s *Store) migrateLegacy(defaults []domain.TopicProgress) ([]domain.TopicProgress, error) {
	raw, found, err := s.Get(LegacyProgressKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return defaults, nil
	}

	backupKey := fmt.Sprintf("%s-backup-%s", LegacyProgressKey, time.Now().Format("2006-01-02"))
	if err := s.Set(backupKey, raw); err != nil {
		return nil, err
	}
	if err := s.Delete(LegacyProgressKey); err != nil {
		return nil, err
	}

	var legacy []domain.TopicProgress
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		// Corrupt legacy data is not worth crashing over; the backup key
		// keeps it recoverable.
		return defaults, nil
	}

	// The legacy shape carried only the flat problem list. Preserve it and
	// take chapter structure from the current defaults.
	merged := make([]domain.TopicProgress, len(defaults))
	copy(merged, defaults)
	for _, old := range legacy {
		for i := range merged {
			if merged[i].TopicID == old.TopicID {
				merged[i].Problems = old.Problems
				break
			}
		}
	}

	return merged, nil
}

func (s *Store) SaveProgress(progress []domain.TopicProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to serialize progress: %v", err)
	}

	if err := s.Set(ProgressKey, string(raw)); err != nil {
		return err
	}

	return s.Set(VersionKey, domain.DataVersion)
}
