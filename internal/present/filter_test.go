package present

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/runnerr0/tabtrail/internal/activity"
)

func fixture(now time.Time) []activity.Record {
	ms := func(d time.Duration) int64 { return now.Add(-d).UnixMilli() }
	return []activity.Record{
		{TabID: 1, URL: "https://github.com/golang/go", Title: "The Go repo", LastUpdatedAt: ms(time.Minute)},
		{TabID: 2, URL: "https://www.youtube.com/watch?v=1", Title: "Talk", LastUpdatedAt: ms(2 * time.Hour), IsClosed: true},
		{TabID: 3, URL: "https://github.com/chromedp/chromedp", Title: "chromedp", LastUpdatedAt: ms(26 * time.Hour)},
		{TabID: 4, URL: "https://go.dev/doc", Title: "Documentation", LastUpdatedAt: ms(72 * time.Hour), IsClosed: true},
	}
}

func ids(records []activity.Record) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.TabID)
	}
	return out
}

func TestSearch(t *testing.T) {
	records := fixture(time.Now())

	assert.Equal(t, []int{1, 2, 3, 4}, ids(Search(records, "")))
	assert.Equal(t, []int{1, 3}, ids(Search(records, "GITHUB")))
	assert.Equal(t, []int{2}, ids(Search(records, "talk")))
	assert.Equal(t, []int{4}, ids(Search(records, "go.dev")))
	assert.Empty(t, Search(records, "nothing-matches"))
}

func TestApplyView(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	records := fixture(now)

	assert.Equal(t, []int{1, 2, 3, 4}, ids(ApplyView(records, ViewAll, now)))
	assert.Equal(t, []int{1, 2, 3, 4}, ids(ApplyView(records, "", now)))
	assert.Equal(t, []int{1, 3}, ids(ApplyView(records, ViewOpen, now)))
	assert.Equal(t, []int{2, 4}, ids(ApplyView(records, ViewClosed, now)))
	assert.Equal(t, []int{1, 2}, ids(ApplyView(records, ViewToday, now)))
	assert.Equal(t, []int{2}, ids(ApplyView(records, ContentVideo, now)))
	assert.Equal(t, []int{1, 3}, ids(ApplyView(records, ContentCode, now)))
	assert.Equal(t, []int{1, 2, 3, 4}, ids(ApplyView(records, "unknown", now)))
}

func TestNextView(t *testing.T) {
	assert.Equal(t, ViewOpen, NextView(ViewAll))
	assert.Equal(t, ViewAll, NextView(ContentShopping))
	assert.Equal(t, ViewAll, NextView("bogus"))
}

func TestGroupByDomainKeepsFirstSeenOrder(t *testing.T) {
	records := fixture(time.Now())

	groups := GroupByDomain(records)
	assert.Len(t, groups, 3)
	assert.Equal(t, "github.com", groups[0].Domain)
	assert.Equal(t, []int{1, 3}, ids(groups[0].Records))
	assert.Equal(t, "www.youtube.com", groups[1].Domain)
	assert.Equal(t, "go.dev", groups[2].Domain)
}

func TestGroupByDomainEmpty(t *testing.T) {
	assert.Empty(t, GroupByDomain(nil))
}
