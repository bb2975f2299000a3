// ABOUTME: Microsoft Graph calendar adapter implementing remote.Client
// ABOUTME: Translates internal event data to Graph JSON and back, no retries
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dwelldigitally/learnlynk-calsync/remote"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	defaultTimeout = 30 * time.Second
	maxPageSize    = 250
)

// Client speaks the Microsoft Graph calendar protocol. It holds no local
// state beyond the HTTP client; every call is authenticated with the bearer
// token supplied by the caller.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithBaseURL is used by tests to point the adapter at a fake server.
func NewClientWithBaseURL(baseURL string, timeout time.Duration) *Client {
	c := NewClient(timeout)
	c.baseURL = baseURL
	return c
}

func (c *Client) CreateEvent(ctx context.Context, event *remote.Event, bearer string) (*remote.Event, error) {
	resp, err := c.do(ctx, http.MethodPost, "/me/events", toGraphEvent(event), bearer)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return nil, statusError("create event", resp)
	}

	var ev graphEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}

	return fromGraphEvent(&ev), nil
}

func (c *Client) UpdateEvent(ctx context.Context, remoteID string, event *remote.Event, bearer string) (*remote.Event, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/me/events/"+url.PathEscape(remoteID), toGraphEvent(event), bearer)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("update event", resp)
	}

	var ev graphEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}

	return fromGraphEvent(&ev), nil
}

// DeleteEvent treats 404 and 410 as success: the event is already gone, which
// is the end state the caller wanted.
func (c *Client) DeleteEvent(ctx context.Context, remoteID string, bearer string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/me/events/"+url.PathEscape(remoteID), nil, bearer)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound, http.StatusGone:
		return nil
	default:
		return statusError("delete event", resp)
	}
}

func (c *Client) ListEvents(ctx context.Context, query remote.ListQuery, bearer string) (*remote.Page, error) {
	endpoint := c.baseURL + "/me/events"

	if query.PageToken != "" {
		// Graph hands back the full next-page URL as the skip token.
		endpoint = query.PageToken
	} else {
		pageSize := query.PageSize
		if pageSize <= 0 || pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		params := url.Values{}
		params.Set("$orderby", "lastModifiedDateTime")
		params.Set("$top", fmt.Sprintf("%d", pageSize))
		if !query.Since.IsZero() {
			params.Set("$filter", fmt.Sprintf("lastModifiedDateTime ge %s", query.Since.UTC().Format(time.RFC3339)))
		}
		endpoint += "?" + params.Encode()
	}

	resp, err := c.doURL(ctx, http.MethodGet, endpoint, nil, bearer)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list events", resp)
	}

	var result struct {
		Value    []graphEvent `json:"value"`
		NextLink string       `json:"@odata.nextLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}

	page := &remote.Page{NextPageToken: result.NextLink}
	page.Events = make([]remote.Event, 0, len(result.Value))
	for i := range result.Value {
		page.Events = append(page.Events, *fromGraphEvent(&result.Value[i]))
	}

	return page, nil
}

func (c *Client) FreeBusy(ctx context.Context, addresses []string, window remote.Window, bearer string) (map[string][]remote.BusyPeriod, error) {
	body := map[string]interface{}{
		"schedules":                addresses,
		"startTime":                graphDateTime{DateTime: window.Start.UTC().Format(graphTimeFormat), TimeZone: "UTC"},
		"endTime":                  graphDateTime{DateTime: window.End.UTC().Format(graphTimeFormat), TimeZone: "UTC"},
		"availabilityViewInterval": 30,
	}

	resp, err := c.do(ctx, http.MethodPost, "/me/calendar/getSchedule", body, bearer)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get schedule", resp)
	}

	var result struct {
		Value []struct {
			ScheduleID    string `json:"scheduleId"`
			ScheduleItems []struct {
				Status string        `json:"status"`
				Start  graphDateTime `json:"start"`
				End    graphDateTime `json:"end"`
			} `json:"scheduleItems"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode schedule response: %w", err)
	}

	busy := make(map[string][]remote.BusyPeriod, len(result.Value))
	for _, schedule := range result.Value {
		periods := make([]remote.BusyPeriod, 0, len(schedule.ScheduleItems))
		for _, item := range schedule.ScheduleItems {
			if item.Status != "busy" && item.Status != "tentative" && item.Status != "oof" {
				continue
			}
			start, err := parseGraphTime(item.Start.DateTime)
			if err != nil {
				continue
			}
			end, err := parseGraphTime(item.End.DateTime)
			if err != nil {
				continue
			}
			periods = append(periods, remote.BusyPeriod{Start: start.UTC(), End: end.UTC()})
		}
		busy[schedule.ScheduleID] = periods
	}

	return busy, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, bearer string) (*http.Response, error) {
	return c.doURL(ctx, method, c.baseURL+path, body, bearer)
}

func (c *Client) doURL(ctx context.Context, method, endpoint string, body interface{}, bearer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}

	return resp, nil
}

// statusError maps Graph status codes onto the adapter error taxonomy.
// 404/410 mean the target vanished; 4xx otherwise means the service refused
// the payload; everything else is treated as the service being unavailable.
func statusError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%s: %w (status %d)", op, remote.ErrNotFound, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%s: %w (status %d: %s)", op, remote.ErrRejected, resp.StatusCode, bytes.TrimSpace(detail))
	default:
		return fmt.Errorf("%s: %w (status %d)", op, remote.ErrUnavailable, resp.StatusCode)
	}
}
