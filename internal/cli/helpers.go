package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/messaging"
	"github.com/runnerr0/tabtrail/internal/storage"
)

const daemonProbeTimeout = time.Second

// openIndex opens the configured backend and an activity store over it.
// The caller closes the returned backend.
func openIndex(ctx context.Context, cfg *config.Config) (storage.Backend, *activity.Store, error) {
	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	store, err := newIndexStore(ctx, backend, cfg)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return backend, store, nil
}

func newIndexStore(ctx context.Context, backend storage.Backend, cfg *config.Config) (*activity.Store, error) {
	filter, err := activity.NewFilter(cfg.Capture)
	if err != nil {
		return nil, fmt.Errorf("build url filter: %w", err)
	}
	return activity.NewStore(backend, activity.Config{
		Key:        cfg.Index.StorageKey,
		MaxEntries: cfg.Index.MaxEntries,
		Filter:     filter,
		Logger:     pslog.Ctx(ctx),
	}), nil
}

// commandContext returns a context carrying the logger built from cfg.
func commandContext(g *GlobalFlags, cfg *config.Config) (context.Context, func(), error) {
	verbose := g != nil && g.Verbose
	logger, closeLog, err := newLogger(cfg.Logging, verbose, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return pslog.ContextWithLogger(context.Background(), logger), closeLog, nil
}

// daemonStatus probes the daemon; ok is false when it is not reachable.
func daemonStatus(ctx context.Context, client *messaging.Client) (messaging.Status, bool) {
	ctx, cancel := context.WithTimeout(ctx, daemonProbeTimeout)
	defer cancel()
	st, err := client.Status(ctx)
	if err != nil {
		return messaging.Status{}, false
	}
	return st, st.OK
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var durationUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// parseDuration accepts a non-negative count followed by m, h, d or w,
// e.g. "30d" or "2w".
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	unit, ok := durationUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("invalid duration: %q (use m, h, d or w suffix)", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	return time.Duration(n) * unit, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// formatDurationHuman renders whole days or hours, e.g. "30 days".
func formatDurationHuman(d time.Duration) string {
	if days := int(d / (24 * time.Hour)); days > 0 {
		return plural(days, "day")
	}
	if hours := int(d / time.Hour); hours > 0 {
		return plural(hours, "hour")
	}
	return d.String()
}

// formatNumber inserts thousands separators.
func formatNumber(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return sign + strings.Join(groups, ",")
}
