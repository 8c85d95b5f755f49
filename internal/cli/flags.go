package cli

import (
	"io"

	"github.com/runnerr0/tabtrail/internal/config"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// TrackCommand runs the event router and the local daemon.
type TrackCommand struct {
	CDPURL    string `long:"cdp-url" description:"Attach to a running browser at this DevTools URL"`
	ExecPath  string `long:"exec-path" description:"Browser binary to launch"`
	Headless  bool   `long:"headless" description:"Launch the browser headless"`
	Port      int    `long:"port" description:"Override daemon port"`
	Ephemeral bool   `long:"ephemeral" description:"Keep the index in memory only"`
	NoBrowser bool   `long:"no-browser" description:"Serve the daemon without attaching to a browser"`

	globals *GlobalFlags
	version string
}

// ListCommand prints the recorded tabs.
type ListCommand struct {
	Search string `long:"search" short:"s" description:"Only entries whose title, url or domain contains this text"`
	Filter string `long:"filter" short:"f" description:"all | open | closed | today | video | streaming | code | social | shopping" default:"all"`
	Group  bool   `long:"group" short:"g" description:"Group entries by domain"`
	Limit  int    `long:"limit" description:"Maximum entries to print (0 = all)" default:"0"`

	globals *GlobalFlags
	version string
}

// StatusCommand shows index statistics and daemon health.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// OpenCommand opens a recorded tab's URL in the browser via the daemon.
type OpenCommand struct {
	Tab int `long:"tab" description:"Tab id (required)" required:"true"`

	globals *GlobalFlags
	version string
}

// DeleteCommand removes one entry from the index.
type DeleteCommand struct {
	Tab int `long:"tab" description:"Tab id (required)" required:"true"`

	globals *GlobalFlags
	version string
}

// ClearCommand deletes every entry, after confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	stdin   io.Reader // nil means os.Stdin
}

// PruneCommand removes entries not updated within a retention window.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Retention period (e.g., 30d); defaults to index.retention_days"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PopupCommand opens the interactive terminal view.
type PopupCommand struct {
	globals *GlobalFlags
	version string
}

// loadConfig resolves the config file named by --config, or the default
// one, creating it when missing.
func loadConfig(g *GlobalFlags) (*config.Config, error) {
	if g != nil && g.Config != "" {
		return config.Load(g.Config)
	}
	return config.LoadOrCreate()
}
