package router

import (
	"context"
	"errors"
)

// ErrTabNotFound is returned by a Host when a tab id is unknown.
var ErrTabNotFound = errors.New("tab not found")

// Host is the browser the router observes.
type Host interface {
	// GetTab returns the current snapshot of tab id.
	GetTab(ctx context.Context, id int) (Tab, error)
	// ListTabs returns every open tab.
	ListTabs(ctx context.Context) ([]Tab, error)
	// ActiveTab returns the active tab of windowID. ok is false when the
	// window has none.
	ActiveTab(ctx context.Context, windowID int) (tab Tab, ok bool, err error)
	// OpenURL opens url in a new tab.
	OpenURL(ctx context.Context, url string) error
}
