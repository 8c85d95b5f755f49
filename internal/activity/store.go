package activity

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/storage"
)

// Config controls a Store. Zero values fall back to defaults.
type Config struct {
	Key        string
	MaxEntries int
	Filter     *Filter
	Now        func() time.Time
	Logger     pslog.Logger
}

// Store is the bounded tabId -> Record index persisted as a single JSON
// object under one backend key. All read-modify-write operations are
// serialized.
type Store struct {
	backend storage.Backend
	key     string
	max     int
	filter  *Filter
	now     func() time.Time
	logger  pslog.Logger

	mu sync.Mutex
}

// NewStore creates a Store over backend.
func NewStore(backend storage.Backend, cfg Config) *Store {
	s := &Store{
		backend: backend,
		key:     cfg.Key,
		max:     cfg.MaxEntries,
		filter:  cfg.Filter,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
	if s.key == "" {
		s.key = config.DefaultStorageKey
	}
	if s.max <= 0 {
		s.max = config.DefaultMaxEntries
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Key returns the backend key holding the index.
func (s *Store) Key() string { return s.key }

func (s *Store) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}

// Upsert inserts a record or merges p over the existing one. ok is false
// when p carries a URL rejected by the filter; nothing is written then.
func (s *Store) Upsert(ctx context.Context, p Patch) (Record, bool, error) {
	if p.URL != nil && !s.filter.Allowed(*p.URL) {
		s.log(ctx).Debug("activity upsert filtered", "tab", p.TabID, "url", *p.URL)
		return Record{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return Record{}, false, err
	}

	existing, found := idx[p.TabID]
	r := p.apply(existing)

	ts := s.now().UnixMilli()
	if p.LastUpdatedAt != nil {
		ts = *p.LastUpdatedAt
	}
	if found && ts < existing.LastUpdatedAt {
		ts = existing.LastUpdatedAt
	}
	r.LastUpdatedAt = ts
	r = sanitize(r)
	idx[p.TabID] = r

	if evicted := s.evict(idx); len(evicted) > 0 {
		s.log(ctx).Debug("activity index evicted", "count", len(evicted), "max", s.max)
	}

	if err := s.save(ctx, idx); err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

// MarkClosed flags the tab as closed. Unknown ids are ignored.
func (s *Store) MarkClosed(ctx context.Context, tabID int) error {
	return s.mutate(ctx, tabID, func(r *Record) {
		r.IsClosed = true
	})
}

// UpdateWindow moves the tab to windowID. Unknown ids are ignored.
func (s *Store) UpdateWindow(ctx context.Context, tabID, windowID int) error {
	return s.mutate(ctx, tabID, func(r *Record) {
		r.WindowID = windowID
	})
}

func (s *Store) mutate(ctx context.Context, tabID int, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return err
	}
	r, ok := idx[tabID]
	if !ok {
		return nil
	}
	fn(&r)
	r.LastUpdatedAt = max(s.now().UnixMilli(), r.LastUpdatedAt)
	idx[tabID] = r
	return s.save(ctx, idx)
}

// Remove deletes the record for tabID. Absent ids are ignored.
func (s *Store) Remove(ctx context.Context, tabID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := idx[tabID]; !ok {
		return nil
	}
	delete(idx, tabID)
	return s.save(ctx, idx)
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}

// Get returns the record for tabID.
func (s *Store) Get(ctx context.Context, tabID int) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return Record{}, false, err
	}
	r, ok := idx[tabID]
	return r, ok, nil
}

// GetAll returns every record in no particular order.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(idx))
	for _, r := range idx {
		out = append(out, r)
	}
	return out, nil
}

// GetSortedByRecency returns every record, most recently updated first.
// Ties are ordered by ascending TabID.
func (s *Store) GetSortedByRecency(ctx context.Context) ([]Record, error) {
	records, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	SortByRecency(records)
	return records, nil
}

// PruneOlderThan deletes records last updated before cutoff and returns
// how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	limit := cutoff.UnixMilli()
	n := 0
	for id, r := range idx {
		if r.LastUpdatedAt < limit {
			delete(idx, id)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.save(ctx, idx); err != nil {
		return 0, err
	}
	return n, nil
}

// SortByRecency orders records by LastUpdatedAt descending, then TabID
// ascending.
func SortByRecency(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := cmp.Compare(b.LastUpdatedAt, a.LastUpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.TabID, b.TabID)
	})
}

// evict trims idx to the configured ceiling, dropping the least recently
// updated records. It returns the evicted ids.
func (s *Store) evict(idx map[int]Record) []int {
	if len(idx) <= s.max {
		return nil
	}
	records := make([]Record, 0, len(idx))
	for _, r := range idx {
		records = append(records, r)
	}
	SortByRecency(records)

	var evicted []int
	for _, r := range records[s.max:] {
		delete(idx, r.TabID)
		evicted = append(evicted, r.TabID)
	}
	return evicted
}

// load reads and decodes the index. A missing key yields an empty index.
// An undecodable blob is logged and treated as empty; backend errors are
// returned.
func (s *Store) load(ctx context.Context) (map[int]Record, error) {
	idx := make(map[int]Record)

	blob, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if !ok || len(blob) == 0 {
		return idx, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		s.log(ctx).Warn("activity index unreadable, starting empty", "key", s.key, "err", err)
		return idx, nil
	}

	for key, msg := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			s.log(ctx).Warn("activity index entry skipped", "key", key, "err", err)
			continue
		}
		var r Record
		if err := json.Unmarshal(msg, &r); err != nil {
			s.log(ctx).Warn("activity index entry skipped", "key", key, "err", err)
			continue
		}
		r.TabID = id
		idx[id] = r
	}
	return idx, nil
}

func (s *Store) save(ctx context.Context, idx map[int]Record) error {
	out := make(map[string]Record, len(idx))
	for id, r := range idx {
		out[strconv.Itoa(id)] = r
	}
	blob, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, blob); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}
