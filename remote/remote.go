// ABOUTME: Provider-neutral remote calendar types and client interface
// ABOUTME: Implemented by the graph and gcal adapters, consumed by the engine
package remote

import (
	"context"
	"time"
)

// Event is the provider-neutral shape of a remote calendar event.
// ChangeToken is an opaque version marker; it is compared for equality only.
type Event struct {
	ID              string
	ChangeToken     string
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	Location        string
	Attendees       []string
	IsOnlineMeeting bool
	MeetingURL      string
	Organizer       string
}

// ListQuery selects remote events changed since a timestamp, one page at a
// time. PageToken is opaque to the caller; an empty token starts a fresh
// window query.
type ListQuery struct {
	Since     time.Time
	PageSize  int
	PageToken string
}

// Page is one page of a list query.
type Page struct {
	Events        []Event
	NextPageToken string
}

// Window is a half-open time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// BusyPeriod is a single busy interval in a free/busy response.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// Client is a pure protocol adapter for a remote calendar service. Adapters
// perform no retries and hold no local state; retry policy belongs to the
// engine. Every call takes an opaque bearer token resolved by the caller.
//
// DeleteEvent treats a "not found" response as success: the desired end
// state, absence, already holds.
type Client interface {
	CreateEvent(ctx context.Context, event *Event, bearer string) (*Event, error)
	UpdateEvent(ctx context.Context, remoteID string, event *Event, bearer string) (*Event, error)
	DeleteEvent(ctx context.Context, remoteID string, bearer string) error
	ListEvents(ctx context.Context, query ListQuery, bearer string) (*Page, error)
	FreeBusy(ctx context.Context, addresses []string, window Window, bearer string) (map[string][]BusyPeriod, error)
}
