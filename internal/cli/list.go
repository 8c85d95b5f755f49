package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/present"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
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

	return c.executeWithStore(ctx, store, args, time.Now())
}

// executeWithStore lists entries from a provided store (for testing).
// Positional args are joined into the search term when --search is unset.
func (c *ListCommand) executeWithStore(ctx context.Context, store *activity.Store, args []string, now time.Time) error {
	if c.Filter != "" && c.Filter != present.ContentWeb && !slices.Contains(present.Views, c.Filter) {
		return fmt.Errorf("invalid --filter value %q", c.Filter)
	}

	term := c.Search
	if term == "" && len(args) > 0 {
		term = strings.Join(args, " ")
	}

	records, err := store.GetSortedByRecency(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	records = present.ApplyView(records, c.Filter, now)
	records = present.Search(records, term)
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(term, records)
	}
	c.printHuman(term, records, now)
	return nil
}

func (c *ListCommand) printHuman(term string, records []activity.Record, now time.Time) {
	if len(records) == 0 {
		if term != "" {
			fmt.Printf("No entries match %q\n", term)
		} else {
			fmt.Println("No entries recorded")
		}
		return
	}

	word := "entries"
	if len(records) == 1 {
		word = "entry"
	}
	fmt.Printf("%d %s\n\n", len(records), word)

	if !c.Group {
		for i, r := range records {
			printEntry(fmt.Sprintf("%d. ", i+1), r, now)
		}
		return
	}

	for _, g := range present.GroupByDomain(records) {
		domain := g.Domain
		if domain == "" {
			domain = "(no domain)"
		}
		fmt.Printf("%s · %s (%d)\n", present.SiteName(g.Domain), domain, len(g.Records))
		for _, r := range g.Records {
			printEntry("  ", r, now)
		}
		fmt.Println()
	}
}

func printEntry(prefix string, r activity.Record, now time.Time) {
	state := ""
	if r.IsClosed {
		state = " [closed]"
	}
	fmt.Printf("%s%s%s\n", prefix, present.Truncate(r.Title, 70), state)
	fmt.Printf("%s   %s\n", strings.Repeat(" ", len(prefix)), r.URL)
	fmt.Printf("%s   tab %d · window %d · %s\n", strings.Repeat(" ", len(prefix)), r.TabID, r.WindowID,
		present.RelativeTime(now, time.UnixMilli(r.LastUpdatedAt)))
}

type jsonListOutput struct {
	Count   int               `json:"count"`
	Search  string            `json:"search,omitempty"`
	Filter  string            `json:"filter"`
	Entries []activity.Record `json:"entries"`
}

func (c *ListCommand) printJSON(term string, records []activity.Record) error {
	if records == nil {
		records = []activity.Record{}
	}
	filter := c.Filter
	if filter == "" {
		filter = present.ViewAll
	}
	return printJSON(jsonListOutput{
		Count:   len(records),
		Search:  term,
		Filter:  filter,
		Entries: records,
	})
}
