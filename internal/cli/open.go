package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/messaging"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	ctx, closeLog, err := commandContext(c.globals, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	client := messaging.NewClient(cfg.Daemon.Addr())
	if _, ok := daemonStatus(ctx, client); !ok {
		return fmt.Errorf("daemon not running on %s: start it with `tabtrail track`", cfg.Daemon.Addr())
	}
	return c.executeWithClient(ctx, client)
}

// executeWithClient looks the tab up through the daemon and asks it to
// focus the tab, or reopen its URL when the tab is gone.
func (c *OpenCommand) executeWithClient(ctx context.Context, client *messaging.Client) error {
	records, err := client.TabData(ctx)
	if err != nil {
		return fmt.Errorf("fetch entries: %w", err)
	}

	var rec activity.Record
	found := false
	for _, r := range records {
		if r.TabID == c.Tab {
			rec, found = r, true
			break
		}
	}
	if !found {
		return fmt.Errorf("no entry for tab %d", c.Tab)
	}
	if rec.URL == "" {
		return fmt.Errorf("entry for tab %d has no url", c.Tab)
	}

	if err := client.OpenTab(ctx, rec.TabID, rec.URL); err != nil {
		return fmt.Errorf("open url: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"opened": true, "tabId": rec.TabID, "url": rec.URL})
	}
	fmt.Printf("Opened %s\n", rec.URL)
	return nil
}
