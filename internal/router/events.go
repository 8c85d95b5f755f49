package router

// WindowIDNone is the window id reported when focus leaves every browser
// window.
const WindowIDNone = -1

// StatusComplete is the Tab.Status of a tab that finished loading.
const StatusComplete = "complete"

// Tab is a snapshot of a browser tab as reported by the Host.
type Tab struct {
	ID         int
	WindowID   int
	URL        string
	Title      string
	FavIconURL string
	Status     string
	Active     bool
}

// ChangeInfo describes which properties of a tab changed. Nil fields did
// not change.
type ChangeInfo struct {
	URL    *string
	Title  *string
	Status *string
}

// Event is a tab or window lifecycle notification.
type Event interface {
	eventName() string
}

type TabCreated struct {
	Tab Tab
}

type TabUpdated struct {
	TabID  int
	Change ChangeInfo
	Tab    Tab
}

type TabRemoved struct {
	TabID    int
	WindowID int
}

type TabAttached struct {
	TabID       int
	NewWindowID int
}

type TabDetached struct {
	TabID       int
	OldWindowID int
}

type TabActivated struct {
	TabID    int
	WindowID int
}

type WindowFocusChanged struct {
	WindowID int
}

func (TabCreated) eventName() string         { return "created" }
func (TabUpdated) eventName() string         { return "updated" }
func (TabRemoved) eventName() string         { return "removed" }
func (TabAttached) eventName() string        { return "attached" }
func (TabDetached) eventName() string        { return "detached" }
func (TabActivated) eventName() string       { return "activated" }
func (WindowFocusChanged) eventName() string { return "focus_changed" }

// EventName returns the short name used in logs and metrics for ev.
func EventName(ev Event) string {
	if ev == nil {
		return "unknown"
	}
	return ev.eventName()
}
