package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/config"
)

// newLogger builds the process logger from the logging section. When a
// file is configured logs go there instead of stderr. The returned func
// closes the file.
func newLogger(cfg config.LoggingConfig, verbose bool, stderr io.Writer) (pslog.Logger, func(), error) {
	out := stderr
	closeFn := func() {}
	if cfg.File != "" {
		path, err := config.ExpandPath(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	level, err := parseLevel(cfg.Level)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	if verbose {
		level = pslog.DebugLevel
	}

	opts := pslog.Options{Mode: pslog.ModeConsole, MinLevel: level}
	switch strings.ToLower(cfg.Mode) {
	case "", "console":
	case "structured", "json":
		opts.Mode = pslog.ModeStructured
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown logging mode %q", cfg.Mode)
	}
	if cfg.File != "" {
		opts.NoColor = true
	}
	return pslog.NewWithOptions(out, opts), closeFn, nil
}

func parseLevel(s string) (pslog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return pslog.TraceLevel, nil
	case "debug":
		return pslog.DebugLevel, nil
	case "", "info":
		return pslog.InfoLevel, nil
	case "warn", "warning":
		return pslog.WarnLevel, nil
	case "error":
		return pslog.ErrorLevel, nil
	default:
		return pslog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
