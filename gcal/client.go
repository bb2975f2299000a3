// ABOUTME: Google Calendar adapter implementing remote.Client
// ABOUTME: Uses etags as change tokens and Meet links for online meetings
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dwelldigitally/learnlynk-calsync/remote"
)

const (
	calendarID  = "primary"
	maxPageSize = 250
)

// Client speaks the Google Calendar protocol. A fresh service is built per
// call from the bearer token the caller supplies, so the adapter itself holds
// no credentials.
type Client struct{}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) service(ctx context.Context, bearer string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer})
	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
	}
	return service, nil
}

func (c *Client) CreateEvent(ctx context.Context, event *remote.Event, bearer string) (*remote.Event, error) {
	service, err := c.service(ctx, bearer)
	if err != nil {
		return nil, err
	}

	call := service.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx)
	if event.IsOnlineMeeting {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, mapError("create event", err)
	}

	return fromGoogleEvent(created), nil
}

func (c *Client) UpdateEvent(ctx context.Context, remoteID string, event *remote.Event, bearer string) (*remote.Event, error) {
	service, err := c.service(ctx, bearer)
	if err != nil {
		return nil, err
	}

	updated, err := service.Events.Patch(calendarID, remoteID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return nil, mapError("update event", err)
	}

	return fromGoogleEvent(updated), nil
}

// DeleteEvent treats 404 and 410 as success; the event is already gone.
func (c *Client) DeleteEvent(ctx context.Context, remoteID string, bearer string) error {
	service, err := c.service(ctx, bearer)
	if err != nil {
		return err
	}

	if err := service.Events.Delete(calendarID, remoteID).Context(ctx).Do(); err != nil {
		mapped := mapError("delete event", err)
		if errors.Is(mapped, remote.ErrNotFound) {
			return nil
		}
		return mapped
	}

	return nil
}

func (c *Client) ListEvents(ctx context.Context, query remote.ListQuery, bearer string) (*remote.Page, error) {
	service, err := c.service(ctx, bearer)
	if err != nil {
		return nil, err
	}

	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	call := service.Events.List(calendarID).
		MaxResults(int64(pageSize)).
		SingleEvents(true).
		ShowDeleted(false).
		Context(ctx)
	if !query.Since.IsZero() {
		call = call.UpdatedMin(query.Since.UTC().Format(time.RFC3339))
	}
	if query.PageToken != "" {
		call = call.PageToken(query.PageToken)
	}

	events, err := call.Do()
	if err != nil {
		return nil, mapError("list events", err)
	}

	page := &remote.Page{NextPageToken: events.NextPageToken}
	page.Events = make([]remote.Event, 0, len(events.Items))
	for _, item := range events.Items {
		// All-day events carry a date instead of a datetime; the engine only
		// reconciles timed events.
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		page.Events = append(page.Events, *fromGoogleEvent(item))
	}

	return page, nil
}

func (c *Client) FreeBusy(ctx context.Context, addresses []string, window remote.Window, bearer string) (map[string][]remote.BusyPeriod, error) {
	service, err := c.service(ctx, bearer)
	if err != nil {
		return nil, err
	}

	items := make([]*calendar.FreeBusyRequestItem, 0, len(addresses))
	for _, address := range addresses {
		items = append(items, &calendar.FreeBusyRequestItem{Id: address})
	}

	resp, err := service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: window.Start.UTC().Format(time.RFC3339),
		TimeMax: window.End.UTC().Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError("free/busy query", err)
	}

	busy := make(map[string][]remote.BusyPeriod, len(resp.Calendars))
	for address, cal := range resp.Calendars {
		periods := make([]remote.BusyPeriod, 0, len(cal.Busy))
		for _, interval := range cal.Busy {
			start, err := time.Parse(time.RFC3339, interval.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, interval.End)
			if err != nil {
				continue
			}
			periods = append(periods, remote.BusyPeriod{Start: start.UTC(), End: end.UTC()})
		}
		busy[address] = periods
	}

	return busy, nil
}

func toGoogleEvent(event *remote.Event) *calendar.Event {
	ev := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       &calendar.EventDateTime{DateTime: event.StartTime.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: event.EndTime.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}

	for _, address := range event.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: address})
	}

	if event.IsOnlineMeeting {
		ev.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.New().String(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}

	return ev
}

func fromGoogleEvent(ev *calendar.Event) *remote.Event {
	event := &remote.Event{
		ID:          ev.Id,
		ChangeToken: ev.Etag,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		MeetingURL:  ev.HangoutLink,
	}
	event.IsOnlineMeeting = ev.HangoutLink != "" || ev.ConferenceData != nil

	if ev.Start != nil && ev.Start.DateTime != "" {
		if start, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			event.StartTime = start.UTC()
		}
	}
	if ev.End != nil && ev.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			event.EndTime = end.UTC()
		}
	}

	for _, attendee := range ev.Attendees {
		if attendee.Email != "" {
			event.Attendees = append(event.Attendees, attendee.Email)
		}
	}

	if ev.Organizer != nil {
		event.Organizer = ev.Organizer.Email
	}

	return event
}

func mapError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404 || apiErr.Code == 410:
			return fmt.Errorf("%s: %w (status %d)", op, remote.ErrNotFound, apiErr.Code)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return fmt.Errorf("%s: %w (status %d: %s)", op, remote.ErrRejected, apiErr.Code, apiErr.Message)
		default:
			return fmt.Errorf("%s: %w (status %d)", op, remote.ErrUnavailable, apiErr.Code)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, remote.ErrUnavailable, err)
}
