package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Track  *TrackCommand
	List   *ListCommand
	Status *StatusCommand
	Open   *OpenCommand
	Delete *DeleteCommand
	Clear  *ClearCommand
	Prune  *PruneCommand
	Popup  *PopupCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tabtrail"
	parser.LongDescription = "Passive per-tab browsing history: records what each tab visited and lets you search, reopen and prune it."

	cmds := &commands{
		Track:  &TrackCommand{globals: &globals, version: version},
		List:   &ListCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Open:   &OpenCommand{globals: &globals, version: version},
		Delete: &DeleteCommand{globals: &globals, version: version},
		Clear:  &ClearCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Popup:  &PopupCommand{globals: &globals, version: version},
	}

	parser.AddCommand("track", "Record tab activity", "Attach to the browser, record tab activity and serve the local daemon.", cmds.Track)
	parser.AddCommand("list", "List recorded tabs", "List recorded tabs by recency, with optional search, filter and grouping.", cmds.List)
	parser.AddCommand("status", "Show index statistics", "Show index statistics, storage location and daemon health.", cmds.Status)
	parser.AddCommand("open", "Open a recorded tab", "Open the URL of a recorded tab in the browser (requires a running daemon).", cmds.Open)
	parser.AddCommand("delete", "Delete one entry", "Delete one entry from the index.", cmds.Delete)
	parser.AddCommand("clear", "Delete ALL entries", "Delete ALL recorded entries. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("prune", "Remove old entries", "Remove entries not updated within the retention period.", cmds.Prune)
	parser.AddCommand("popup", "Interactive view", "Open the interactive terminal view (requires a running daemon).", cmds.Popup)

	return parser, &globals, cmds
}

// Run is the main entry point for the tabtrail CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tabtrail %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	var flagsErr *goflags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
		return nil
	}
	return err
}
