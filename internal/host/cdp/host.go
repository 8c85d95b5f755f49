// Package cdp implements router.Host on top of the Chrome DevTools
// Protocol.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	cdpexec "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/config"
	"github.com/runnerr0/tabtrail/internal/router"
)

const startTimeout = 30 * time.Second

// Host is a browser reached over CDP, either launched locally or attached
// through a remote debugging URL.
type Host struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	ids        *IDMap
	translator *Translator
	logger     pslog.Logger
}

var _ router.Host = (*Host)(nil)

// Connect starts or attaches to a browser according to cfg.
func Connect(ctx context.Context, cfg config.BrowserConfig) (*Host, error) {
	logger := pslog.Ctx(ctx)

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.CDPURL != "" {
		logger.Info("connecting to browser", "url", cfg.CDPURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.CDPURL)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		if !cfg.Headless {
			opts = append(opts, chromedp.Flag("headless", false))
		}
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		logger.Info("launching browser", "exec", cfg.ExecPath, "headless", cfg.Headless)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	bCtx, bCancel := chromedp.NewContext(allocCtx)

	startCtx, startDone := context.WithTimeout(ctx, startTimeout)
	defer startDone()

	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(bCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			c := chromedp.FromContext(ctx)
			return target.SetDiscoverTargets(true).Do(cdpexec.WithExecutor(ctx, c.Browser))
		}))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			bCancel()
			allocCancel()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-startCtx.Done():
		bCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", startCtx.Err())
	}

	h := &Host{
		browserCtx:    bCtx,
		browserCancel: bCancel,
		allocCancel:   allocCancel,
		ids:           NewIDMap(),
		logger:        logger,
	}
	h.translator = NewTranslator(h.ids)
	h.translator.WindowOf = func(tid target.ID) int {
		return h.windowOf(h.browserCtx, tid)
	}
	return h, nil
}

// exec returns ctx bound to the browser-level CDP executor.
func (h *Host) exec(ctx context.Context) context.Context {
	return cdpexec.WithExecutor(ctx, chromedp.FromContext(h.browserCtx).Browser)
}

func (h *Host) windowOf(ctx context.Context, tid target.ID) int {
	id, _, err := browser.GetWindowForTarget().WithTargetID(tid).Do(h.exec(ctx))
	if err != nil {
		h.logger.Debug("window lookup failed", "target", string(tid), "err", err)
		return 0
	}
	return int(id)
}

func (h *Host) GetTab(ctx context.Context, id int) (router.Tab, error) {
	tid, ok := h.ids.Target(id)
	if !ok {
		return router.Tab{}, router.ErrTabNotFound
	}
	info, err := target.GetTargetInfo().WithTargetID(tid).Do(h.exec(ctx))
	if err != nil {
		return router.Tab{}, fmt.Errorf("get target %s: %w", tid, err)
	}
	return TabFromInfo(h.ids, info, h.windowOf(ctx, tid)), nil
}

func (h *Host) ListTabs(ctx context.Context) ([]router.Tab, error) {
	infos, err := target.GetTargets().Do(h.exec(ctx))
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	var tabs []router.Tab
	for _, info := range infos {
		if info.Type != pageTarget {
			continue
		}
		tabs = append(tabs, TabFromInfo(h.ids, info, h.windowOf(ctx, info.TargetID)))
	}
	return tabs, nil
}

// ActiveTab returns the first page target of windowID. Target.getTargets
// lists pages most recently activated first.
func (h *Host) ActiveTab(ctx context.Context, windowID int) (router.Tab, bool, error) {
	tabs, err := h.ListTabs(ctx)
	if err != nil {
		return router.Tab{}, false, err
	}
	for _, tab := range tabs {
		if tab.WindowID == windowID {
			tab.Active = true
			return tab, true, nil
		}
	}
	return router.Tab{}, false, nil
}

func (h *Host) OpenURL(ctx context.Context, url string) error {
	if _, err := target.CreateTarget(url).Do(h.exec(ctx)); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// ReserveIDs keeps new tab ids above maxID, the highest id already
// recorded.
func (h *Host) ReserveIDs(maxID int) {
	h.ids.Reserve(maxID)
}

// Activate brings the tab to the front.
func (h *Host) Activate(ctx context.Context, id int) error {
	tid, ok := h.ids.Target(id)
	if !ok {
		return router.ErrTabNotFound
	}
	return target.ActivateTarget(tid).Do(h.exec(ctx))
}

// Events streams router events until ctx is done or the browser goes
// away. The CDP listener never blocks; when the buffer is full events are
// dropped and logged.
func (h *Host) Events(ctx context.Context, buffer int) <-chan router.Event {
	if buffer <= 0 {
		buffer = 1
	}
	raw := make(chan any, buffer)
	out := make(chan router.Event, buffer)

	lctx, cancel := context.WithCancel(h.browserCtx)
	stop := context.AfterFunc(ctx, cancel)

	chromedp.ListenBrowser(lctx, func(ev any) {
		switch ev.(type) {
		case *target.EventTargetCreated, *target.EventTargetInfoChanged, *target.EventTargetDestroyed:
		default:
			return
		}
		select {
		case raw <- ev:
		default:
			h.logger.Warn("cdp event dropped", "type", fmt.Sprintf("%T", ev))
		}
	})

	// Translation may issue CDP commands, which must not happen on the
	// listener goroutine.
	go func() {
		defer close(out)
		defer stop()
		defer cancel()
		settle := time.NewTicker(max(h.translator.Settle/4, 50*time.Millisecond))
		defer settle.Stop()

		emit := func(evs []router.Event) bool {
			for _, rev := range evs {
				select {
				case out <- rev:
				case <-lctx.Done():
					return false
				}
			}
			return true
		}
		for {
			select {
			case <-lctx.Done():
				return
			case ev := <-raw:
				if !emit(h.translator.Translate(ev)) {
					return
				}
			case now := <-settle.C:
				if !emit(h.translator.Expire(now)) {
					return
				}
			}
		}
	}()
	return out
}

// Close detaches from, or shuts down, the browser.
func (h *Host) Close() error {
	var err error
	if cerr := chromedp.Cancel(h.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = cerr
	}
	h.browserCancel()
	h.allocCancel()
	return err
}
