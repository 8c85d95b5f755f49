package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/messaging"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
// A running daemon owns the store, so the delete is routed through it when
// reachable.
func (c *DeleteCommand) Execute(args []string) error {
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
	if _, ok := daemonStatus(ctx, client); ok {
		return c.executeWithClient(ctx, client)
	}

	backend, store, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return c.executeWithStore(ctx, store)
}

// executeWithStore deletes from a provided store (for testing).
func (c *DeleteCommand) executeWithStore(ctx context.Context, store *activity.Store) error {
	_, found, err := store.Get(ctx, c.Tab)
	if err != nil {
		return fmt.Errorf("look up entry: %w", err)
	}
	if !found {
		return fmt.Errorf("no entry for tab %d", c.Tab)
	}
	if err := store.Remove(ctx, c.Tab); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return c.report()
}

func (c *DeleteCommand) executeWithClient(ctx context.Context, client *messaging.Client) error {
	if err := client.DeleteEntry(ctx, c.Tab); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return c.report()
}

func (c *DeleteCommand) report() error {
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"deleted": true, "tabId": c.Tab})
	}
	fmt.Printf("Deleted entry for tab %d\n", c.Tab)
	return nil
}
