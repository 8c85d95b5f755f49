package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/messaging"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if err := c.confirm(); err != nil {
		return err
	}

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
		if err := client.ClearAll(ctx); err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		return c.report()
	}

	backend, store, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return c.clearStore(ctx, store)
}

// confirm enforces --all and, unless --force, the typed confirmation.
func (c *ClearCommand) confirm() error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL recorded tab history.")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "CLEAR" to confirm: `)

	var in io.Reader = os.Stdin
	if c.stdin != nil {
		in = c.stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "CLEAR" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithStore clears a provided store (for testing). Confirmation is
// checked first.
func (c *ClearCommand) executeWithStore(ctx context.Context, store *activity.Store) error {
	if err := c.confirm(); err != nil {
		return err
	}
	return c.clearStore(ctx, store)
}

func (c *ClearCommand) clearStore(ctx context.Context, store *activity.Store) error {
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	return c.report()
}

func (c *ClearCommand) report() error {
	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{"cleared": true, "message": "all entries deleted"})
	}
	fmt.Println("Cleared all entries. tabtrail is empty.")
	return nil
}
