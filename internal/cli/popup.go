package cli

import (
	"fmt"

	"github.com/runnerr0/tabtrail/internal/messaging"
	"github.com/runnerr0/tabtrail/internal/popup"
)

// Execute implements the go-flags Commander interface for PopupCommand.
func (c *PopupCommand) Execute(args []string) error {
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
	return popup.Run(ctx, client)
}
