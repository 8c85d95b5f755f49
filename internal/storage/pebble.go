package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleBackend implements Backend on a pebble LSM store. Writes are synced
// before they return.
type PebbleBackend struct {
	db     *pebble.DB
	closed atomic.Bool
}

// OpenPebble opens (creating if needed) a pebble store in dir.
func OpenPebble(dir string) (*PebbleBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create pebble directory: %w", err)
	}
	return openPebble(dir, &pebble.Options{})
}

// OpenPebbleInMemory opens a pebble store backed by an in-memory
// filesystem. Nothing survives Close.
func OpenPebbleInMemory() (*PebbleBackend, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(dir string, opts *pebble.Options) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleBackend{db: db}, nil
}

// Get returns a copy of the blob stored under key.
func (b *PebbleBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	if b.closed.Load() {
		return nil, false, ErrClosed
	}

	value, closer, err := b.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	// value is only valid until closer is closed.
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (b *PebbleBackend) Set(_ context.Context, key string, value []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := b.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (b *PebbleBackend) Remove(_ context.Context, key string) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if err := b.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (b *PebbleBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.db.Close()
}
