// Package db wraps SQLite access for the two browser history stores.
// Unlike a store this tool owns, both databases belong to the browsers,
// so Open never creates files, never migrates schemas, and never changes
// the journal mode.
package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
	path string
}

// Open opens an existing SQLite database at the given path for writing.
// The file must already exist: this tool only ever mutates databases the
// destination browser created.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// busy_timeout only. Touching journal_mode or synchronous on a
	// browser-owned database would rewrite its header.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply busy_timeout pragma: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// OpenReadOnly opens a SQLite database in read-only, immutable mode. The
// file is never written, not even a journal.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database read-only: %w", err)
	}

	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// TableExists reports whether a table with the given name is present.
func (db *DB) TableExists(name string) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return count > 0, nil
}

// IntegrityCheck runs PRAGMA integrity_check and returns its verdict.
func (db *DB) IntegrityCheck() (string, error) {
	var verdict string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&verdict); err != nil {
		return "", fmt.Errorf("failed to run integrity check: %w", err)
	}
	return verdict, nil
}
