package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
)

var pruneNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// setupPruneTest seeds oldCount entries 60 days old and recentCount entries
// one hour old.
func setupPruneTest(t *testing.T, oldCount, recentCount int) *activity.Store {
	t.Helper()
	store, _ := newTestStore(t)

	id := 1
	for i := 0; i < oldCount; i++ {
		seedEntries(t, store, entry{id: id, url: fmt.Sprintf("https://old%d.com/page", i), ts: pruneNow.Add(-60 * 24 * time.Hour).UnixMilli()})
		id++
	}
	for i := 0; i < recentCount; i++ {
		seedEntries(t, store, entry{id: id, url: fmt.Sprintf("https://recent%d.com/page", i), ts: pruneNow.Add(-time.Hour).UnixMilli()})
		id++
	}
	return store
}

func TestPrune_OlderThan(t *testing.T) {
	store := setupPruneTest(t, 3, 2)
	cmd := &PruneCommand{globals: &GlobalFlags{}, OlderThan: "30d"}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), config.DefaultConfig(), store, pruneNow))
	})

	assert.Contains(t, output, "Pruned 3 entries older than 30 days")
	assert.Equal(t, 2, remaining(t, store))
}

func TestPrune_DryRunKeepsEntries(t *testing.T) {
	store := setupPruneTest(t, 1, 2)
	cmd := &PruneCommand{globals: &GlobalFlags{}, OlderThan: "30d", DryRun: true}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), config.DefaultConfig(), store, pruneNow))
	})

	assert.Contains(t, output, "Would prune 1 entry older than 30 days")
	assert.Equal(t, 3, remaining(t, store))
}

func TestPrune_DefaultsToConfiguredRetention(t *testing.T) {
	store := setupPruneTest(t, 2, 1)
	cfg := config.DefaultConfig()
	cfg.Index.RetentionDays = 7
	cmd := &PruneCommand{globals: &GlobalFlags{JSON: true}}

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWithStore(context.Background(), cfg, store, pruneNow))
	})

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, float64(2), out["pruned"])
	assert.Equal(t, float64(7), out["retention_days"])
	assert.Equal(t, false, out["dry_run"])
	assert.Equal(t, "2025-06-08T12:00:00Z", out["cutoff"])
}

func TestPrune_NoRetentionConfigured(t *testing.T) {
	store := setupPruneTest(t, 1, 0)
	cmd := &PruneCommand{globals: &GlobalFlags{}}

	err := cmd.executeWithStore(context.Background(), config.DefaultConfig(), store, pruneNow)
	assert.ErrorContains(t, err, "no retention period")
	assert.Equal(t, 1, remaining(t, store))
}

func TestPrune_InvalidDuration(t *testing.T) {
	store := setupPruneTest(t, 0, 0)
	cmd := &PruneCommand{globals: &GlobalFlags{}, OlderThan: "soon"}

	err := cmd.executeWithStore(context.Background(), config.DefaultConfig(), store, pruneNow)
	assert.ErrorContains(t, err, "invalid --older-than")
}

func TestPruneLoopRunsImmediately(t *testing.T) {
	store, _ := newTestStore(t)
	seedEntries(t, store,
		entry{id: 1, url: "https://old.example/a", ts: time.Now().Add(-48 * time.Hour).UnixMilli()},
		entry{id: 2, url: "https://new.example/b", ts: time.Now().UnixMilli()},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruneLoop(ctx, store, 24*time.Hour, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		all, err := store.GetAll(context.Background())
		return err == nil && len(all) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
