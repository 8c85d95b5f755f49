// Package settings persists the popup view preferences.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/present"
	"github.com/runnerr0/tabtrail/internal/storage"
)

// Key is the backend key holding the settings blob.
const Key = "popupSettings"

// Settings are the popup view preferences.
type Settings struct {
	GroupByDomain bool   `json:"groupByDomain"`
	ShowClosed    bool   `json:"showClosed"`
	ShowFavicons  bool   `json:"showFavicons"`
	Filter        string `json:"filter"`
}

// Default returns the settings used when none are stored.
func Default() Settings {
	return Settings{ShowClosed: true, ShowFavicons: true, Filter: present.ViewAll}
}

// Validate rejects a Filter that is neither empty nor a known view.
func (st Settings) Validate() error {
	if st.Filter != "" && !slices.Contains(present.Views, st.Filter) {
		return fmt.Errorf("unknown filter %q", st.Filter)
	}
	return nil
}

// Store reads and writes Settings through a storage backend.
type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Load returns the stored settings, or Default when none are stored or the
// blob cannot be decoded.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	blob, ok, err := s.backend.Get(ctx, Key)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	out := Default()
	if !ok {
		return out, nil
	}
	if err := json.Unmarshal(blob, &out); err != nil {
		pslog.Ctx(ctx).Warn("settings unreadable, using defaults", "err", err)
		return Default(), nil
	}
	return out, nil
}

// Save validates and stores st.
func (s *Store) Save(ctx context.Context, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.backend.Set(ctx, Key, blob); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
