package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	ctx, closeLog, err := commandContext(c.globals, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	backend, store, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	return c.executeWithStore(ctx, cfg, store, time.Now())
}

// retention resolves --older-than, falling back to index.retention_days.
func (c *PruneCommand) retention(cfg *config.Config) (time.Duration, error) {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return 0, fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		return d, nil
	}
	if cfg.Index.RetentionDays > 0 {
		return time.Duration(cfg.Index.RetentionDays) * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("no retention period: pass --older-than or set index.retention_days")
}

// executeWithStore prunes a provided store (for testing).
func (c *PruneCommand) executeWithStore(ctx context.Context, cfg *config.Config, store *activity.Store, now time.Time) error {
	retention, err := c.retention(cfg)
	if err != nil {
		return err
	}
	cutoff := now.Add(-retention)

	var count int
	if c.DryRun {
		records, err := store.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("list entries: %w", err)
		}
		for _, r := range records {
			if r.LastUpdatedAt < cutoff.UnixMilli() {
				count++
			}
		}
	} else {
		count, err = store.PruneOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"dry_run":        c.DryRun,
			"pruned":         count,
			"cutoff":         cutoff.UTC().Format(time.RFC3339),
			"retention_days": int(retention.Hours() / 24),
		})
	}

	verb := "Pruned"
	if c.DryRun {
		verb = "Would prune"
	}
	word := "entries"
	if count == 1 {
		word = "entry"
	}
	fmt.Printf("%s %s %s older than %s\n", verb, formatNumber(count), word, formatDurationHuman(retention))
	return nil
}
