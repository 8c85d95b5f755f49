package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/config"
)

func newSQLiteTestBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, NewMigrationRunner(db).Run())
	b, err := NewSQLiteBackend(db)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func newPebbleTestBackend(t *testing.T) *PebbleBackend {
	t.Helper()
	b, err := OpenPebbleInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func backendsUnderTest(t *testing.T) map[string]Backend {
	return map[string]Backend{
		"sqlite": newSQLiteTestBackend(t),
		"pebble": newPebbleTestBackend(t),
		"memory": NewMemoryBackend(),
	}
}

func TestBackend_GetMissingKey(t *testing.T) {
	for name, b := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			v, ok, err := b.Get(context.Background(), "absent")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
}

func TestBackend_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, b := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Set(ctx, "tabActivityIndex", []byte(`{"1":{}}`)))

			v, ok, err := b.Get(ctx, "tabActivityIndex")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"1":{}}`, string(v))

			require.NoError(t, b.Set(ctx, "tabActivityIndex", []byte(`{}`)))
			v, ok, err = b.Get(ctx, "tabActivityIndex")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{}`, string(v))
		})
	}
}

func TestBackend_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, b := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Set(ctx, "k", []byte("v")))
			require.NoError(t, b.Remove(ctx, "k"))
			require.NoError(t, b.Remove(ctx, "k"))

			_, ok, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestBackend_ReturnedValueIsACopy(t *testing.T) {
	ctx := context.Background()
	for name, b := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Set(ctx, "k", []byte("abc")))
			v, _, err := b.Get(ctx, "k")
			require.NoError(t, err)
			v[0] = 'z'

			again, _, err := b.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "abc", string(again))
		})
	}
}

func TestBackend_ClosedReturnsErrClosed(t *testing.T) {
	ctx := context.Background()
	for name, b := range backendsUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Close())
			require.NoError(t, b.Close())

			_, _, err := b.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, b.Set(ctx, "k", nil), ErrClosed)
			assert.ErrorIs(t, b.Remove(ctx, "k"), ErrClosed)
		})
	}
}

func TestSQLiteBackend_AuditLog(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteTestBackend(t)

	require.NoError(t, b.Set(ctx, "tabActivityIndex", []byte("{}")))
	require.NoError(t, b.Remove(ctx, "tabActivityIndex"))
	require.NoError(t, b.Remove(ctx, "tabActivityIndex")) // absent: no audit row

	rows, err := b.db.Query("SELECT action, key, detail FROM audit_log ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	type entry struct{ action, key, detail string }
	var got []entry
	for rows.Next() {
		var e entry
		require.NoError(t, rows.Scan(&e.action, &e.key, &e.detail))
		got = append(got, e)
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, []entry{
		{"set", "tabActivityIndex", "2 bytes"},
		{"remove", "tabActivityIndex", ""},
	}, got)
}

func TestSQLiteBackend_WriteAndAuditAreAtomic(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteTestBackend(t)
	require.NoError(t, b.Set(ctx, "kept", []byte("v1")))

	_, err := b.db.Exec(`CREATE TRIGGER audit_down BEFORE INSERT ON audit_log
		BEGIN SELECT RAISE(ABORT, 'audit unavailable'); END`)
	require.NoError(t, err)

	err = b.Set(ctx, "fresh", []byte("x"))
	require.ErrorContains(t, err, "audit set fresh")
	_, ok, err := b.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok, "value rolled back with its audit row")

	require.Error(t, b.Set(ctx, "kept", []byte("v2")))
	require.ErrorContains(t, b.Remove(ctx, "kept"), "audit remove kept")
	got, ok, err := b.Get(ctx, "kept")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)
}

func TestSQLiteBackend_ByteSizeTracked(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteTestBackend(t)
	require.NoError(t, b.Set(ctx, "k", []byte("12345")))

	var size int
	require.NoError(t, b.db.QueryRow("SELECT byte_size FROM kv WHERE key = 'k'").Scan(&size))
	assert.Equal(t, 5, size)
}

func TestOpenSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tabtrail.db")

	b, err := OpenSQLite(path, "wal")
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("durable")))
	require.NoError(t, b.Close())

	b, err = OpenSQLite(path, "")
	require.NoError(t, err)
	defer b.Close()

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", string(v))
}

func TestOpenPebble_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "pebble")

	b, err := OpenPebble(dir)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("durable")))
	require.NoError(t, b.Close())

	b, err = OpenPebble(dir)
	require.NoError(t, err)
	defer b.Close()

	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", string(v))
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()
	base := config.StorageConfig{Path: dir, SQLiteFile: "t.db", PebbleDir: "kv"}

	tests := []struct {
		backend string
		want    any
	}{
		{"sqlite", &SQLiteBackend{}},
		{"", &SQLiteBackend{}},
		{"pebble", &PebbleBackend{}},
		{"memory", &MemoryBackend{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := base
			cfg.Backend = tt.backend
			b, err := Open(cfg)
			require.NoError(t, err)
			defer b.Close()
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(config.StorageConfig{Backend: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}

func TestMemoryBackend_FailWith(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	boom := errors.New("disk on fire")

	b.FailWith(boom)
	_, _, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, b.Set(ctx, "k", nil), boom)

	b.FailWith(nil)
	assert.NoError(t, b.Set(ctx, "k", []byte("ok")))
}
