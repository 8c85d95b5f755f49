package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/host/cdp"
	"github.com/runnerr0/tabtrail/internal/messaging"
	"github.com/runnerr0/tabtrail/internal/router"
	"github.com/runnerr0/tabtrail/internal/settings"
	"github.com/runnerr0/tabtrail/internal/storage"
)

const retentionInterval = time.Hour

// browserHost is a router.Host that also streams lifecycle events.
type browserHost interface {
	router.Host
	Events(ctx context.Context, buffer int) <-chan router.Event
	// ReserveIDs keeps newly assigned tab ids above maxID.
	ReserveIDs(maxID int)
	Close() error
}

// applyOverrides folds command-line flags into cfg.
func (c *TrackCommand) applyOverrides(cfg *config.Config) {
	if c.Port > 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.CDPURL != "" {
		cfg.Browser.CDPURL = c.CDPURL
	}
	if c.ExecPath != "" {
		cfg.Browser.ExecPath = c.ExecPath
	}
	if c.Headless {
		cfg.Browser.Headless = true
	}
	if c.Ephemeral {
		cfg.Storage.Backend = "memory"
	}
}

// Execute implements the go-flags Commander interface for TrackCommand.
func (c *TrackCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)

	ctx, closeLog, err := commandContext(c.globals, cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	store, err := newIndexStore(ctx, backend, cfg)
	if err != nil {
		return err
	}

	var host browserHost
	if !c.NoBrowser {
		h, err := cdp.Connect(ctx, cfg.Browser)
		if err != nil {
			return err
		}
		defer h.Close()
		host = h
	}

	return c.executeWithStore(ctx, cfg, store, settings.NewStore(backend), host)
}

// executeWithStore runs the router (when host is non-nil) and the daemon
// until ctx is done.
func (c *TrackCommand) executeWithStore(ctx context.Context, cfg *config.Config, store *activity.Store, prefs *settings.Store, host browserHost) error {
	logger := pslog.Ctx(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	var opener messaging.Opener
	if host != nil {
		opener = host

		filter, err := activity.NewFilter(cfg.Capture)
		if err != nil {
			return fmt.Errorf("build url filter: %w", err)
		}
		rtr := router.New(store, host, router.Config{
			Throttle: time.Duration(cfg.Router.ThrottleMillis) * time.Millisecond,
			Filter:   filter,
			Metrics:  router.NewMetrics(reg),
		})

		// Ids are only unique per browser session; records from earlier
		// sessions must not be taken over by new tabs.
		maxID, err := maxTabID(ctx, store)
		if err != nil {
			return err
		}
		host.ReserveIDs(maxID)

		events := host.Events(ctx, cfg.Router.EventBuffer)
		if err := rtr.Snapshot(ctx); err != nil {
			logger.Warn("startup snapshot incomplete", "err", err)
		}
		n, _ := countEntries(ctx, store)
		logger.Info("tracking tabs", "entries", n)

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := rtr.Run(ctx, events)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("router stopped", "err", err)
			} else if ctx.Err() == nil {
				logger.Warn("browser disconnected")
			}
			cancel()
		}()
	} else {
		logger.Info("no browser attached; serving stored history only")
	}

	if cfg.Index.RetentionDays > 0 {
		retention := time.Duration(cfg.Index.RetentionDays) * 24 * time.Hour
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruneLoop(ctx, store, retention, retentionInterval)
		}()
	}

	server := messaging.NewServer(messaging.NewHandler(store, prefs, opener), cfg.Daemon, reg, c.version)
	err := messaging.ListenAndServe(ctx, cfg.Daemon.Addr(), server.Handler())
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("serve daemon: %w", err)
	}
	return nil
}

func maxTabID(ctx context.Context, store *activity.Store) (int, error) {
	records, err := store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read stored tab ids: %w", err)
	}
	maxID := 0
	for _, r := range records {
		maxID = max(maxID, r.TabID)
	}
	return maxID, nil
}

func countEntries(ctx context.Context, store *activity.Store) (int, error) {
	records, err := store.GetAll(ctx)
	return len(records), err
}

// pruneLoop applies age-based retention immediately and then every
// interval until ctx is done.
func pruneLoop(ctx context.Context, store *activity.Store, retention, interval time.Duration) {
	logger := pslog.Ctx(ctx)
	prune := func() {
		n, err := store.PruneOlderThan(ctx, time.Now().Add(-retention))
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("retention prune failed", "err", err)
			}
			return
		}
		if n > 0 {
			logger.Info("pruned expired entries", "count", n)
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
