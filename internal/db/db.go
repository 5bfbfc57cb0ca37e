// Package db provides local store management: connection handling, first-run
// bootstrap, and the generic data-access gateway used by the desktop shell.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// FileName is the on-disk name of the local store.
const FileName = "facturo.db"

// DB wraps the single local store handle.
//
// All access goes through short lock-scoped critical sections: callers take
// Lock around one prepare+execute and release it before doing anything that
// can suspend (network I/O in particular). The sync engine relies on this to
// keep a slow remote from blocking local reads and writes.
type DB struct {
	*sql.DB
	mu sync.Mutex
}

// Open opens the SQLite store under dataDir with Facturo configuration:
// WAL mode for concurrent readers, foreign keys on, a single writer connection.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, FileName)

	// modernc.org/sqlite is pure Go, no CGO
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{DB: conn}, nil
}

// Lock acquires the store for one critical section. Never hold it across
// network I/O or any other suspension point.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the store.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// TableExists reports whether a table is present in the store.
func (db *DB) TableExists(name string) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to probe for table %s: %w", name, err)
	}
	return count > 0, nil
}
