package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/settings"
)

// Client talks to a running daemon.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client for addr, either host:port or a full URL.
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

// Send posts req and returns the daemon's Response. A success=false
// Response is not an error here.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/message", bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send %s: %w", req.Action, err)
	}
	defer httpResp.Body.Close()

	var resp Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, 64<<20)).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK && resp.Error == "" {
		resp.Error = httpResp.Status
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &RemoteError{Action: req.Action, Message: resp.Error}
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// TabData returns every record, most recent first.
func (c *Client) TabData(ctx context.Context) ([]activity.Record, error) {
	var records []activity.Record
	if err := c.call(ctx, Request{Action: ActionGetTabData}, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) ClearAll(ctx context.Context) error {
	return c.call(ctx, Request{Action: ActionClearAllData}, nil)
}

func (c *Client) DeleteEntry(ctx context.Context, tabID int) error {
	return c.call(ctx, Request{Action: ActionDeleteEntry, TabID: &tabID}, nil)
}

func (c *Client) OpenURL(ctx context.Context, url string) error {
	return c.call(ctx, Request{Action: ActionOpenURL, URL: url}, nil)
}

// OpenTab focuses recorded tab tabID if it is still open, or opens url.
func (c *Client) OpenTab(ctx context.Context, tabID int, url string) error {
	return c.call(ctx, Request{Action: ActionOpenURL, TabID: &tabID, URL: url}, nil)
}

func (c *Client) Stats(ctx context.Context) (activity.Stats, error) {
	var st activity.Stats
	err := c.call(ctx, Request{Action: ActionGetStats}, &st)
	return st, err
}

func (c *Client) Settings(ctx context.Context) (settings.Settings, error) {
	var st settings.Settings
	err := c.call(ctx, Request{Action: ActionGetSettings}, &st)
	return st, err
}

func (c *Client) SaveSettings(ctx context.Context, st settings.Settings) error {
	return c.call(ctx, Request{Action: ActionSaveSettings, Settings: &st}, nil)
}

// Status fetches GET /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return Status{}, err
	}
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return Status{}, fmt.Errorf("get status: %w", err)
	}
	defer httpResp.Body.Close()

	var st Status
	if err := json.NewDecoder(httpResp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
