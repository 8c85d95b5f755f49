package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/config"
)

// Config controls a Router.
type Config struct {
	// Throttle is the minimum gap between two accepted update events for
	// the same tab. Zero disables throttling.
	Throttle time.Duration
	Filter   *activity.Filter
	Now      func() time.Time
	Logger   pslog.Logger
	Metrics  *Metrics
}

// DefaultThrottle is the update throttle window.
const DefaultThrottle = config.DefaultThrottleMS * time.Millisecond

// Router translates tab lifecycle events into activity store writes.
type Router struct {
	store    *activity.Store
	host     Host
	filter   *activity.Filter
	throttle time.Duration
	now      func() time.Time
	logger   pslog.Logger
	metrics  *Metrics

	limiters *xsync.MapOf[int, *rate.Limiter]
}

// New creates a Router writing to store and querying host.
func New(store *activity.Store, host Host, cfg Config) *Router {
	r := &Router{
		store:    store,
		host:     host,
		filter:   cfg.Filter,
		throttle: cfg.Throttle,
		now:      cfg.Now,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		limiters: xsync.NewMapOf[int, *rate.Limiter](),
	}
	if r.filter == nil {
		r.filter = activity.DefaultFilter()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

func (r *Router) log(ctx context.Context) pslog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return pslog.Ctx(ctx)
}

// Run dispatches events sequentially until ctx is done or events is
// closed.
func (r *Router) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles a single event. Errors are logged, never returned.
func (r *Router) Dispatch(ctx context.Context, ev Event) {
	if err := r.Handle(ctx, ev); err != nil {
		r.metrics.drop(ReasonError)
		r.log(ctx).Warn("router event failed", "event", EventName(ev), "err", err)
	}
}

// Handle routes ev to its handler and returns the handler's error.
func (r *Router) Handle(ctx context.Context, ev Event) error {
	r.metrics.event(EventName(ev))
	switch e := ev.(type) {
	case TabCreated:
		return r.OnCreated(ctx, e.Tab)
	case TabUpdated:
		return r.OnUpdated(ctx, e.TabID, e.Change, e.Tab)
	case TabRemoved:
		return r.OnRemoved(ctx, e.TabID)
	case TabAttached:
		return r.OnAttached(ctx, e.TabID, e.NewWindowID)
	case TabDetached:
		return r.OnDetached(ctx, e.TabID, e.OldWindowID)
	case TabActivated:
		return r.OnActivated(ctx, e.TabID)
	case WindowFocusChanged:
		return r.OnWindowFocusChanged(ctx, e.WindowID)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// OnActivated records the newly active tab.
func (r *Router) OnActivated(ctx context.Context, tabID int) error {
	tab, err := r.host.GetTab(ctx, tabID)
	if err != nil {
		return fmt.Errorf("get tab %d: %w", tabID, err)
	}
	return r.record(ctx, tab)
}

// OnUpdated records a tab whose URL changed or that finished loading.
// Accepted updates for the same tab are throttled.
func (r *Router) OnUpdated(ctx context.Context, tabID int, change ChangeInfo, tab Tab) error {
	urlChanged := change.URL != nil
	complete := change.Status != nil && *change.Status == StatusComplete
	if !urlChanged && !complete {
		return nil
	}
	tab.ID = tabID
	if !r.eligible(ctx, tab) {
		return nil
	}
	release, ok := r.reserve(tabID)
	if !ok {
		r.metrics.drop(ReasonThrottled)
		r.log(ctx).Debug("router update throttled", "tab", tabID)
		return nil
	}
	if err := r.upsert(ctx, tab); err != nil {
		// A failed write does not count against the window.
		release()
		return err
	}
	return nil
}

// OnRemoved marks the tab closed and forgets its throttle state so a
// reused id starts fresh.
func (r *Router) OnRemoved(ctx context.Context, tabID int) error {
	r.limiters.Delete(tabID)
	if err := r.store.MarkClosed(ctx, tabID); err != nil {
		return fmt.Errorf("mark tab %d closed: %w", tabID, err)
	}
	return nil
}

// OnCreated records a new tab. Creation is never throttled.
func (r *Router) OnCreated(ctx context.Context, tab Tab) error {
	return r.record(ctx, tab)
}

func (r *Router) OnAttached(ctx context.Context, tabID, newWindowID int) error {
	return r.updateWindow(ctx, tabID, newWindowID)
}

func (r *Router) OnDetached(ctx context.Context, tabID, oldWindowID int) error {
	return r.updateWindow(ctx, tabID, oldWindowID)
}

func (r *Router) updateWindow(ctx context.Context, tabID, windowID int) error {
	if err := r.store.UpdateWindow(ctx, tabID, windowID); err != nil {
		return fmt.Errorf("update window of tab %d: %w", tabID, err)
	}
	return nil
}

// OnWindowFocusChanged refreshes the active tab of the focused window.
func (r *Router) OnWindowFocusChanged(ctx context.Context, windowID int) error {
	if windowID == WindowIDNone {
		return nil
	}
	tab, ok, err := r.host.ActiveTab(ctx, windowID)
	if err != nil {
		return fmt.Errorf("active tab of window %d: %w", windowID, err)
	}
	if !ok {
		return nil
	}
	return r.record(ctx, tab)
}

// Snapshot records every currently open tab. It is meant for cold start
// and bypasses the throttle. Per-tab failures are joined.
func (r *Router) Snapshot(ctx context.Context) error {
	r.metrics.event("snapshot")
	tabs, err := r.host.ListTabs(ctx)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}

	var errs []error
	recorded := 0
	for _, tab := range tabs {
		if !r.eligible(ctx, tab) {
			continue
		}
		if err := r.upsert(ctx, tab); err != nil {
			errs = append(errs, err)
			continue
		}
		recorded++
	}
	r.log(ctx).Info("router snapshot", "tabs", len(tabs), "recorded", recorded)
	return errors.Join(errs...)
}

func (r *Router) record(ctx context.Context, tab Tab) error {
	if !r.eligible(ctx, tab) {
		return nil
	}
	return r.upsert(ctx, tab)
}

func (r *Router) eligible(ctx context.Context, tab Tab) bool {
	if tab.URL == "" {
		r.metrics.drop(ReasonNoURL)
		return false
	}
	if !r.filter.Allowed(tab.URL) {
		r.metrics.drop(ReasonFiltered)
		r.log(ctx).Debug("router url filtered", "tab", tab.ID, "url", tab.URL)
		return false
	}
	return true
}

// reserve takes tabID's throttle token when the update falls outside the
// window. release hands the token back.
func (r *Router) reserve(tabID int) (release func(), ok bool) {
	if r.throttle <= 0 {
		return func() {}, true
	}
	lim, _ := r.limiters.LoadOrCompute(tabID, func() *rate.Limiter {
		return rate.NewLimiter(rate.Every(r.throttle), 1)
	})
	now := r.now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return nil, false
	}
	if res.DelayFrom(now) > 0 {
		res.CancelAt(now)
		return nil, false
	}
	return func() { res.CancelAt(now) }, true
}

func (r *Router) upsert(ctx context.Context, tab Tab) error {
	if _, _, err := r.store.Upsert(ctx, patchFromTab(tab)); err != nil {
		return fmt.Errorf("upsert tab %d: %w", tab.ID, err)
	}
	return nil
}

// patchFromTab builds a full snapshot patch. Title and favicon are always
// replaced so a navigation never keeps the previous page's values; blank
// ones are derived from the URL by the store.
func patchFromTab(tab Tab) activity.Patch {
	return activity.Patch{
		TabID:      tab.ID,
		WindowID:   &tab.WindowID,
		URL:        &tab.URL,
		Title:      &tab.Title,
		FaviconURL: &tab.FavIconURL,
	}
}
