package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/messaging"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string            `json:"version"`
	Backend       string            `json:"backend"`
	StoragePath   string            `json:"storage_path"`
	StorageKey    string            `json:"storage_key"`
	MaxEntries    int               `json:"max_entries"`
	Total         int               `json:"total"`
	Open          int               `json:"open"`
	Closed        int               `json:"closed"`
	OldestEntry   string            `json:"oldest_entry,omitempty"`
	NewestEntry   string            `json:"newest_entry,omitempty"`
	RetentionDays int               `json:"retention_days"`
	TopDomains    []domainCountJSON `json:"top_domains"`
	DaemonAddr    string            `json:"daemon_addr"`
	DaemonRunning bool              `json:"daemon_running"`
}

type domainCountJSON struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	return c.executeWithStore(ctx, cfg, store, messaging.NewClient(cfg.Daemon.Addr()))
}

// executeWithStore runs status against a provided store. client may be nil
// to skip the daemon probe.
func (c *StatusCommand) executeWithStore(ctx context.Context, cfg *config.Config, store *activity.Store, client *messaging.Client) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	running := false
	if client != nil {
		_, running = daemonStatus(ctx, client)
	}

	storagePath := cfg.Storage.Path
	switch cfg.Storage.Backend {
	case "", "sqlite":
		storagePath, _ = cfg.Storage.SQLitePath()
	case "pebble":
		storagePath, _ = cfg.Storage.PebblePath()
	case "memory":
		storagePath = "(memory)"
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(cfg, stats, storagePath, running)
	}
	return c.printStatusHuman(cfg, stats, storagePath, running)
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats activity.Stats, storagePath string, running bool) error {
	backend := cfg.Storage.Backend
	if backend == "" {
		backend = "sqlite"
	}

	fmt.Println("tabtrail Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Storage:       %s (%s)\n", storagePath, backend)
	fmt.Printf("Entries:       %s / %s\n", formatNumber(stats.Total), formatNumber(cfg.Index.MaxEntries))
	fmt.Printf("Open:          %s\n", formatNumber(stats.Open))
	fmt.Printf("Closed:        %s\n", formatNumber(stats.Closed))

	if stats.Total > 0 {
		fmt.Printf("Oldest:        %s\n", stats.Oldest.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Newest:        %s\n", stats.Newest.Local().Format("2006-01-02 15:04"))
	}

	if cfg.Index.RetentionDays > 0 {
		fmt.Printf("Retention:     %d days\n", cfg.Index.RetentionDays)
	} else {
		fmt.Println("Retention:     unlimited")
	}

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-24s %s\n", d.Domain, formatNumber(d.Count))
		}
	}

	fmt.Println()
	if running {
		fmt.Printf("Daemon:        running on %s\n", cfg.Daemon.Addr())
	} else {
		fmt.Println("Daemon:        not running")
	}
	return nil
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats activity.Stats, storagePath string, running bool) error {
	out := statusJSON{
		Version:       c.version,
		Backend:       cfg.Storage.Backend,
		StoragePath:   storagePath,
		StorageKey:    cfg.Index.StorageKey,
		MaxEntries:    cfg.Index.MaxEntries,
		Total:         stats.Total,
		Open:          stats.Open,
		Closed:        stats.Closed,
		RetentionDays: cfg.Index.RetentionDays,
		TopDomains:    make([]domainCountJSON, len(stats.TopDomains)),
		DaemonAddr:    cfg.Daemon.Addr(),
		DaemonRunning: running,
	}

	if stats.Total > 0 {
		out.OldestEntry = stats.Oldest.UTC().Format(time.RFC3339)
		out.NewestEntry = stats.Newest.UTC().Format(time.RFC3339)
	}

	for i, d := range stats.TopDomains {
		out.TopDomains[i] = domainCountJSON{Domain: d.Domain, Count: d.Count}
	}

	return printJSON(out)
}
