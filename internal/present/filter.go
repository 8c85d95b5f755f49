package present

import (
	"strings"
	"time"

	"github.com/runnerr0/tabtrail/internal/activity"
)

// Views understood by ApplyView besides the content types.
const (
	ViewAll    = "all"
	ViewOpen   = "open"
	ViewClosed = "closed"
	ViewToday  = "today"
)

// Views lists every view in cycling order.
var Views = []string{
	ViewAll, ViewOpen, ViewClosed, ViewToday,
	ContentVideo, ContentStreaming, ContentCode, ContentSocial, ContentShopping,
}

// NextView returns the view after current in Views.
func NextView(current string) string {
	for i, v := range Views {
		if v == current {
			return Views[(i+1)%len(Views)]
		}
	}
	return ViewAll
}

// Search keeps records whose title, URL or domain contains term, case
// insensitively. An empty term keeps everything.
func Search(records []activity.Record, term string) []activity.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	var out []activity.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), term) ||
			strings.Contains(strings.ToLower(r.URL), term) ||
			strings.Contains(activity.Domain(r.URL), term) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyView keeps the records matching view. Unknown views keep
// everything. "today" is relative to the local day of now.
func ApplyView(records []activity.Record, view string, now time.Time) []activity.Record {
	var keep func(activity.Record) bool
	switch view {
	case "", ViewAll:
		return records
	case ViewOpen:
		keep = func(r activity.Record) bool { return !r.IsClosed }
	case ViewClosed:
		keep = func(r activity.Record) bool { return r.IsClosed }
	case ViewToday:
		y, m, d := now.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).UnixMilli()
		keep = func(r activity.Record) bool { return r.LastUpdatedAt >= midnight }
	case ContentVideo, ContentStreaming, ContentCode, ContentSocial, ContentShopping, ContentWeb:
		keep = func(r activity.Record) bool { return ContentType(r.URL) == view }
	default:
		return records
	}
	var out []activity.Record
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Group is a run of records sharing a domain.
type Group struct {
	Domain  string
	Records []activity.Record
}

// GroupByDomain groups records by domain. Groups appear in the order their
// first record appears; records keep their relative order.
func GroupByDomain(records []activity.Record) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range records {
		d := activity.Domain(r.URL)
		i, ok := index[d]
		if !ok {
			i = len(groups)
			index[d] = i
			groups = append(groups, Group{Domain: d})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
