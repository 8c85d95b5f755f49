package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/tabtrail/internal/config"
)

// ErrClosed is returned by a Backend after Close.
var ErrClosed = errors.New("backend closed")

// Backend is a durable key-value store holding opaque serialized blobs.
// Each key is written atomically as a whole value.
type Backend interface {
	// Get returns the blob for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "sqlite":
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path, cfg.SQLiteJournalMode)
	case "pebble":
		path, err := cfg.PebblePath()
		if err != nil {
			return nil, err
		}
		return OpenPebble(path)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenSQLite opens (creating if needed) the database at path, runs
// migrations, and returns a ready-to-use backend that owns the *sql.DB.
func OpenSQLite(path, journalMode string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := NewMigrationRunner(db)
	if journalMode != "" {
		runner.JournalMode = journalMode
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	b, err := NewSQLiteBackend(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create backend: %w", err)
	}
	b.ownsDB = true
	return b, nil
}
