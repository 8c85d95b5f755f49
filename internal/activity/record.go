package activity

import "strings"

// Record is the persisted activity entry for one browser tab.
type Record struct {
	TabID         int    `json:"tabId"`
	WindowID      int    `json:"windowId"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	FaviconURL    string `json:"faviconUrl"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"` // ms since epoch
	IsClosed      bool   `json:"isClosed"`
}

// Patch is a partial Record. Nil fields leave the stored value untouched
// when merged over an existing record.
type Patch struct {
	TabID         int
	WindowID      *int
	URL           *string
	Title         *string
	FaviconURL    *string
	LastUpdatedAt *int64
	IsClosed      *bool
}

// PatchFromRecord returns a Patch carrying every field of r.
func PatchFromRecord(r Record) Patch {
	return Patch{
		TabID:         r.TabID,
		WindowID:      &r.WindowID,
		URL:           &r.URL,
		Title:         &r.Title,
		FaviconURL:    &r.FaviconURL,
		LastUpdatedAt: &r.LastUpdatedAt,
		IsClosed:      &r.IsClosed,
	}
}

// apply merges p over r. LastUpdatedAt is handled by the caller.
func (p Patch) apply(r Record) Record {
	r.TabID = p.TabID
	if p.WindowID != nil {
		r.WindowID = *p.WindowID
	}
	if p.URL != nil {
		r.URL = *p.URL
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.FaviconURL != nil {
		r.FaviconURL = *p.FaviconURL
	}
	// Closed is terminal.
	if p.IsClosed != nil && *p.IsClosed {
		r.IsClosed = true
	}
	return r
}

// sanitize fills in a title and favicon derived from the URL when either
// is blank.
func sanitize(r Record) Record {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = DeriveTitle(r.URL)
	}
	if strings.TrimSpace(r.FaviconURL) == "" {
		r.FaviconURL = DeriveFavicon(r.URL)
	}
	return r
}
