package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/settings"
)

// ErrNoBrowser is returned for openUrl when no browser is attached.
var ErrNoBrowser = errors.New("no browser connected")

// Opener opens URLs in the browser.
type Opener interface {
	OpenURL(ctx context.Context, url string) error
}

// Activator brings an open tab to the front. Openers implementing it get
// asked to focus a still-open recorded tab before a new one is created.
type Activator interface {
	Activate(ctx context.Context, tabID int) error
}

// Handler executes Requests against the activity store.
type Handler struct {
	store    *activity.Store
	settings *settings.Store
	opener   Opener
}

// NewHandler creates a Handler. opener and prefs may be nil; the actions
// needing them then fail.
func NewHandler(store *activity.Store, prefs *settings.Store, opener Opener) *Handler {
	return &Handler{store: store, settings: prefs, opener: opener}
}

// Handle executes req. Failures are reported in the Response, never as a
// Go error.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	data, err := h.dispatch(ctx, req)
	if err != nil {
		pslog.Ctx(ctx).Warn("message failed", "id", req.ID, "action", req.Action, "err", err)
		return Response{ID: req.ID, Success: false, Error: err.Error()}
	}

	resp := Response{ID: req.ID, Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Response{ID: req.ID, Success: false, Error: fmt.Sprintf("encode response: %v", err)}
		}
		resp.Data = raw
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Action {
	case ActionGetTabData:
		records, err := h.store.GetSortedByRecency(ctx)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []activity.Record{}
		}
		return records, nil

	case ActionClearAllData:
		return nil, h.store.Clear(ctx)

	case ActionDeleteEntry:
		id, err := tabIDOf(req)
		if err != nil {
			return nil, err
		}
		return nil, h.store.Remove(ctx, id)

	case ActionOpenURL:
		return nil, h.open(ctx, req)

	case ActionGetStats:
		return h.store.Stats(ctx)

	case ActionGetSettings:
		if h.settings == nil {
			return nil, errors.New("settings unavailable")
		}
		return h.settings.Load(ctx)

	case ActionSaveSettings:
		if h.settings == nil {
			return nil, errors.New("settings unavailable")
		}
		if req.Settings == nil {
			return nil, errors.New("settings are required")
		}
		return nil, h.settings.Save(ctx, *req.Settings)

	case "":
		return nil, errors.New("action is required")
	default:
		return nil, fmt.Errorf("unknown action %q", req.Action)
	}
}

// open focuses the recorded tab when it is still open and shows the same
// URL, and otherwise opens the URL in a new tab.
func (h *Handler) open(ctx context.Context, req Request) error {
	if h.opener == nil {
		return ErrNoBrowser
	}
	url := req.URL
	if req.TabID != nil || req.TabKey != "" {
		id, err := tabIDOf(req)
		if err != nil {
			return err
		}
		rec, ok, err := h.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			if url == "" {
				url = rec.URL
			}
			if act, can := h.opener.(Activator); can && !rec.IsClosed && rec.URL == url {
				err := act.Activate(ctx, id)
				if err == nil {
					return nil
				}
				pslog.Ctx(ctx).Debug("tab activation failed, opening new tab", "tab", id, "err", err)
			}
		}
	}
	if url == "" {
		return errors.New("url is required")
	}
	return h.opener.OpenURL(ctx, url)
}

func tabIDOf(req Request) (int, error) {
	if req.TabID != nil {
		return *req.TabID, nil
	}
	if req.TabKey == "" {
		return 0, errors.New("tabKey or tabId is required")
	}
	return ParseTabKey(req.TabKey)
}
