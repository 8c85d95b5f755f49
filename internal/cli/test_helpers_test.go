package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/messaging"
	"github.com/runnerr0/tabtrail/internal/settings"
	"github.com/runnerr0/tabtrail/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-done
}

// newTestStore returns an activity store over a migrated in-memory SQLite
// database.
func newTestStore(t *testing.T) (*activity.Store, storage.Backend) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	backend, err := storage.NewSQLiteBackend(db)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return activity.NewStore(backend, activity.Config{}), backend
}

type entry struct {
	id     int
	url    string
	title  string
	ts     int64
	closed bool
}

func seedEntries(t *testing.T, store *activity.Store, entries ...entry) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries {
		p := activity.Patch{TabID: e.id, URL: &e.url, LastUpdatedAt: &e.ts}
		if e.title != "" {
			p.Title = &e.title
		}
		if e.closed {
			p.IsClosed = &e.closed
		}
		_, ok, err := store.Upsert(ctx, p)
		require.NoError(t, err)
		require.True(t, ok, e.url)
	}
}

type recordingOpener struct{ urls []string }

func (o *recordingOpener) OpenURL(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	return nil
}

// newTestDaemon serves store over httptest and returns a client for it.
func newTestDaemon(t *testing.T, store *activity.Store, backend storage.Backend) (*messaging.Client, *recordingOpener) {
	t.Helper()
	opener := &recordingOpener{}
	h := messaging.NewHandler(store, settings.NewStore(backend), opener)
	srv := messaging.NewServer(h, config.DefaultConfig().Daemon, prometheus.NewRegistry(), "test")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return messaging.NewClient(ts.URL), opener
}
