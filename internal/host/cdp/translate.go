package cdp

import (
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/runnerr0/tabtrail/internal/router"
)

const (
	pageTarget = "page"

	// DefaultSettle is how long a navigation waits for its document title
	// before it is reported with whatever title the target has.
	DefaultSettle = 1500 * time.Millisecond
)

// Translator turns CDP target discovery events into router events. Only
// page targets are tracked; workers, iframes and extension pages are
// ignored.
//
// A URL change is not reported on its own: at commit time the target's
// title is still the URL. The navigation is held until the title changes
// or Settle elapses (see Expire) and then reported once as a completed
// load.
type Translator struct {
	ids *IDMap
	// WindowOf resolves the window of a target. It may be nil.
	WindowOf func(target.ID) int
	Settle   time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	seen    map[target.ID]target.Info
	pending map[target.ID]time.Time
}

func NewTranslator(ids *IDMap) *Translator {
	return &Translator{
		ids:     ids,
		Settle:  DefaultSettle,
		Now:     time.Now,
		seen:    make(map[target.ID]target.Info),
		pending: make(map[target.ID]time.Time),
	}
}

// Translate maps one CDP event to zero or more router events.
func (t *Translator) Translate(ev any) []router.Event {
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		if e.TargetInfo == nil || e.TargetInfo.Type != pageTarget {
			return nil
		}
		info := *e.TargetInfo
		t.remember(info)
		return []router.Event{router.TabCreated{Tab: t.tab(info)}}

	case *target.EventTargetInfoChanged:
		if e.TargetInfo == nil || e.TargetInfo.Type != pageTarget {
			return nil
		}
		info := *e.TargetInfo
		prev, known := t.remember(info)
		if !known {
			return []router.Event{router.TabCreated{Tab: t.tab(info)}}
		}

		t.mu.Lock()
		_, navigating := t.pending[info.TargetID]
		switch {
		case info.URL != prev.URL:
			// Redirects restart the wait.
			t.pending[info.TargetID] = t.Now()
		case info.Title == prev.Title:
		case navigating && provisionalTitle(info):
			// Chrome shows the URL as title until the document sets one.
		default:
			delete(t.pending, info.TargetID)
			t.mu.Unlock()
			return []router.Event{t.complete(info, navigating)}
		}
		t.mu.Unlock()
		return nil

	case *target.EventTargetDestroyed:
		t.mu.Lock()
		_, known := t.seen[e.TargetID]
		delete(t.seen, e.TargetID)
		delete(t.pending, e.TargetID)
		t.mu.Unlock()
		if !known {
			return nil
		}
		id, ok := t.ids.Forget(e.TargetID)
		if !ok {
			return nil
		}
		return []router.Event{router.TabRemoved{TabID: id}}
	}
	return nil
}

// Expire reports navigations that have waited Settle or longer without a
// real title.
func (t *Translator) Expire(now time.Time) []router.Event {
	var due []target.Info
	t.mu.Lock()
	for tid, since := range t.pending {
		if now.Sub(since) < t.Settle {
			continue
		}
		delete(t.pending, tid)
		if info, ok := t.seen[tid]; ok {
			due = append(due, info)
		}
	}
	t.mu.Unlock()

	out := make([]router.Event, 0, len(due))
	for _, info := range due {
		out = append(out, t.complete(info, true))
	}
	return out
}

func provisionalTitle(info target.Info) bool {
	return info.Title == "" || strings.Contains(info.URL, info.Title)
}

// complete builds the update for a finished load.
func (t *Translator) complete(info target.Info, navigated bool) router.Event {
	tab := t.tab(info)
	status := router.StatusComplete
	tab.Status = status
	change := router.ChangeInfo{Title: &tab.Title, Status: &status}
	if navigated {
		change.URL = &tab.URL
	}
	return router.TabUpdated{TabID: tab.ID, Change: change, Tab: tab}
}

func (t *Translator) remember(info target.Info) (target.Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.seen[info.TargetID]
	t.seen[info.TargetID] = info
	return prev, ok
}

func (t *Translator) tab(info target.Info) router.Tab {
	tab := router.Tab{
		ID:    t.ids.TabID(info.TargetID),
		URL:   info.URL,
		Title: info.Title,
	}
	if t.WindowOf != nil {
		tab.WindowID = t.WindowOf(info.TargetID)
	}
	return tab
}

// TabFromInfo converts a target snapshot to a router.Tab.
func TabFromInfo(ids *IDMap, info *target.Info, windowID int) router.Tab {
	return router.Tab{
		ID:       ids.TabID(info.TargetID),
		WindowID: windowID,
		URL:      info.URL,
		Title:    info.Title,
		Status:   router.StatusComplete,
	}
}
