package activity

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// Stats holds aggregate figures about the index.
type Stats struct {
	Total      int           `json:"total"`
	Open       int           `json:"open"`
	Closed     int           `json:"closed"`
	Oldest     time.Time     `json:"oldest"`
	Newest     time.Time     `json:"newest"`
	TopDomains []DomainCount `json:"topDomains"`
}

// DomainCount pairs a domain with its record count.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

const topDomainLimit = 10

// Stats summarizes the index.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	records, err := s.GetAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(records), nil
}

// Summarize computes Stats over records.
func Summarize(records []Record) Stats {
	var st Stats
	counts := make(map[string]int)
	var oldest, newest int64
	for i, r := range records {
		st.Total++
		if r.IsClosed {
			st.Closed++
		} else {
			st.Open++
		}
		if i == 0 || r.LastUpdatedAt < oldest {
			oldest = r.LastUpdatedAt
		}
		if i == 0 || r.LastUpdatedAt > newest {
			newest = r.LastUpdatedAt
		}
		if d := Domain(r.URL); d != "" {
			counts[d]++
		}
	}
	if st.Total > 0 {
		st.Oldest = time.UnixMilli(oldest)
		st.Newest = time.UnixMilli(newest)
	}

	for d, n := range counts {
		st.TopDomains = append(st.TopDomains, DomainCount{Domain: d, Count: n})
	}
	slices.SortFunc(st.TopDomains, func(a, b DomainCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain, b.Domain)
	})
	if len(st.TopDomains) > topDomainLimit {
		st.TopDomains = st.TopDomains[:topDomainLimit]
	}
	return st
}
