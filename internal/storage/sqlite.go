package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// SQLiteBackend implements Backend on the kv table of a migrated SQLite
// database.
type SQLiteBackend struct {
	db     *sql.DB
	ownsDB bool
	closed atomic.Bool

	// Prepared statements
	getValue    *sql.Stmt
	upsertValue *sql.Stmt
	deleteValue *sql.Stmt
	insertAudit *sql.Stmt
}

// NewSQLiteBackend creates a SQLiteBackend from an already-opened and
// migrated database. The caller keeps ownership of db.
func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	b := &SQLiteBackend{db: db}

	if err := b.prepareStatements(); err != nil {
		b.closeStatements()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return b, nil
}

func (b *SQLiteBackend) prepareStatements() error {
	var err error

	b.getValue, err = b.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	b.upsertValue, err = b.db.Prepare(`
		INSERT INTO kv (key, value, byte_size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			byte_size  = excluded.byte_size,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	b.deleteValue, err = b.db.Prepare(`DELETE FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	b.insertAudit, err = b.db.Prepare(`
		INSERT INTO audit_log (action, key, detail) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// Get returns the stored blob for key.
func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.closed.Load() {
		return nil, false, ErrClosed
	}

	var value []byte
	err := b.getValue.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key and records the write in the audit log.
// Both happen in one transaction.
func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	return b.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.StmtContext(ctx, b.upsertValue).ExecContext(ctx, key, value, len(value), ts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		if _, err := tx.StmtContext(ctx, b.insertAudit).ExecContext(ctx, "set", key, fmt.Sprintf("%d bytes", len(value))); err != nil {
			return fmt.Errorf("audit set %s: %w", key, err)
		}
		return nil
	})
}

// Remove deletes key. An absent key is not an error and is not audited.
func (b *SQLiteBackend) Remove(ctx context.Context, key string) error {
	if b.closed.Load() {
		return ErrClosed
	}

	return b.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.StmtContext(ctx, b.deleteValue).ExecContext(ctx, key)
		if err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := tx.StmtContext(ctx, b.insertAudit).ExecContext(ctx, "remove", key, ""); err != nil {
			return fmt.Errorf("audit remove %s: %w", key, err)
		}
		return nil
	})
}

func (b *SQLiteBackend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases all prepared statements. The underlying *sql.DB is only
// closed when it was opened by OpenSQLite.
func (b *SQLiteBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.closeStatements()
	if b.ownsDB {
		return b.db.Close()
	}
	return nil
}

func (b *SQLiteBackend) closeStatements() {
	stmts := []*sql.Stmt{b.getValue, b.upsertValue, b.deleteValue, b.insertAudit}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
}
