package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/config"
)

func statusConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Path = "/var/lib/tabtrail"
	cfg.Daemon.Port = 1 // nothing listens here
	return cfg
}

func TestStatus_Empty(t *testing.T) {
	store, _ := newTestStore(t)
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), statusConfig(), store, nil))
	})

	assert.Contains(t, output, "tabtrail Status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "Storage:       /var/lib/tabtrail/tabtrail.db (sqlite)")
	assert.Contains(t, output, "Entries:       0 / 100")
	assert.Contains(t, output, "Retention:     unlimited")
	assert.Contains(t, output, "Daemon:        not running")
	assert.NotContains(t, output, "Oldest:")
	assert.NotContains(t, output, "Top Domains:")
}

func TestStatus_WithDataAndDaemon(t *testing.T) {
	store, backend := newTestStore(t)
	now := time.Now().UnixMilli()
	seedEntries(t, store,
		entry{id: 1, url: "https://github.com/a", ts: now - 3000},
		entry{id: 2, url: "https://github.com/b", ts: now - 2000, closed: true},
		entry{id: 3, url: "https://go.dev/doc", ts: now - 1000},
	)
	client, _ := newTestDaemon(t, store, backend)

	cfg := statusConfig()
	cfg.Index.RetentionDays = 14
	cmd := &StatusCommand{globals: &GlobalFlags{}, version: "dev"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), cfg, store, client))
	})

	assert.Contains(t, output, "Entries:       3 / 100")
	assert.Contains(t, output, "Open:          2")
	assert.Contains(t, output, "Closed:        1")
	assert.Contains(t, output, "Oldest:")
	assert.Contains(t, output, "Retention:     14 days")
	assert.Contains(t, output, "Top Domains:")
	assert.Contains(t, output, "github.com")
	assert.Contains(t, output, "Daemon:        running")
}

func TestStatus_JSON(t *testing.T) {
	store, _ := newTestStore(t)
	seedEntries(t, store,
		entry{id: 1, url: "https://github.com/a", ts: 1_700_000_000_000},
		entry{id: 2, url: "https://github.com/b", ts: 1_700_000_100_000},
	)
	cfg := statusConfig()
	cfg.Storage.Backend = "pebble"
	cmd := &StatusCommand{globals: &GlobalFlags{JSON: true}, version: "1.0.0"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), cfg, store, nil))
	})

	var out statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, "1.0.0", out.Version)
	assert.Equal(t, "pebble", out.Backend)
	assert.Equal(t, "/var/lib/tabtrail/pebble", out.StoragePath)
	assert.Equal(t, "tabActivityIndex", out.StorageKey)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 2, out.Open)
	assert.Equal(t, "2023-11-14T22:13:20Z", out.OldestEntry)
	require.Len(t, out.TopDomains, 1)
	assert.Equal(t, domainCountJSON{Domain: "github.com", Count: 2}, out.TopDomains[0])
	assert.False(t, out.DaemonRunning)
}
