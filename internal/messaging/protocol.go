// Package messaging implements the request/response contract between the
// tracking daemon and its user interfaces.
package messaging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/runnerr0/tabtrail/internal/settings"
)

// Actions understood by the daemon.
const (
	ActionGetTabData   = "getTabData"
	ActionClearAllData = "clearAllData"
	ActionDeleteEntry  = "deleteEntry"
	ActionOpenURL      = "openUrl"
	ActionGetStats     = "getStats"
	ActionGetSettings  = "getSettings"
	ActionSaveSettings = "saveSettings"
)

// Request is a single message sent to the daemon.
type Request struct {
	ID       string             `json:"id,omitempty"`
	Action   string             `json:"action"`
	TabKey   string             `json:"tabKey,omitempty"`
	TabID    *int               `json:"tabId,omitempty"`
	URL      string             `json:"url,omitempty"`
	Settings *settings.Settings `json:"settings,omitempty"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode unmarshals the response payload into v.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response %s has no data", r.ID)
	}
	return json.Unmarshal(r.Data, v)
}

// ParseTabKey accepts "42" or the legacy "tab_42" form.
func ParseTabKey(key string) (int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(key), "tab_")
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid tab key %q", key)
	}
	return id, nil
}

// RemoteError is returned by Client when the daemon answers with
// success=false.
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Action + ": " + e.Message
}
