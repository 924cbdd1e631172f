// Package shortcuts persists text-expansion shortcuts. The engine applies
// expansions during composition; this package owns their storage, startup
// loading, and file import/export.
package shortcuts

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"vikeyd/internal/engine"
)

// Schema for the shortcut store.
const schema = `
CREATE TABLE IF NOT EXISTS shortcuts (
    trigger     TEXT PRIMARY KEY,
    replacement TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);
`

// Shortcut is one text-expansion rule: typing the trigger followed by a word
// break inserts the replacement.
type Shortcut struct {
	Trigger     string `json:"trigger" yaml:"trigger"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// Store is the SQLite-backed shortcut store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the shortcut database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Add inserts a shortcut, replacing any existing rule for the trigger.
func (s *Store) Add(trigger, replacement string) error {
	if trigger == "" {
		return fmt.Errorf("empty trigger")
	}
	_, err := s.db.Exec(`
		INSERT INTO shortcuts (trigger, replacement, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trigger) DO UPDATE SET replacement = excluded.replacement`,
		trigger, replacement, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert shortcut: %w", err)
	}
	return nil
}

// Remove deletes the shortcut for the trigger. Removing an unknown trigger
// is not an error.
func (s *Store) Remove(trigger string) error {
	if _, err := s.db.Exec(`DELETE FROM shortcuts WHERE trigger = ?`, trigger); err != nil {
		return fmt.Errorf("delete shortcut: %w", err)
	}
	return nil
}

// List returns all shortcuts ordered by trigger.
func (s *Store) List() ([]Shortcut, error) {
	rows, err := s.db.Query(`SELECT trigger, replacement FROM shortcuts ORDER BY trigger`)
	if err != nil {
		return nil, fmt.Errorf("query shortcuts: %w", err)
	}
	defer rows.Close()

	var list []Shortcut
	for rows.Next() {
		var sc Shortcut
		if err := rows.Scan(&sc.Trigger, &sc.Replacement); err != nil {
			return nil, fmt.Errorf("scan shortcut: %w", err)
		}
		list = append(list, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shortcuts: %w", err)
	}
	return list, nil
}

// Clear removes all shortcuts.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM shortcuts`); err != nil {
		return fmt.Errorf("clear shortcuts: %w", err)
	}
	return nil
}

// Import inserts all given shortcuts in one transaction, replacing existing
// triggers.
func (s *Store) Import(list []Shortcut) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO shortcuts (trigger, replacement, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trigger) DO UPDATE SET replacement = excluded.replacement`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, sc := range list {
		if sc.Trigger == "" {
			return fmt.Errorf("empty trigger")
		}
		if _, err := stmt.Exec(sc.Trigger, sc.Replacement, now); err != nil {
			return fmt.Errorf("insert shortcut %q: %w", sc.Trigger, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadInto pushes every stored shortcut into the engine. Called at startup
// and after bulk imports.
func (s *Store) LoadInto(eng engine.Engine) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	eng.ClearShortcuts()
	for _, sc := range list {
		eng.AddShortcut(sc.Trigger, sc.Replacement)
	}
	return nil
}
