// ABOUTME: Wire types for Microsoft Graph calendar events
// ABOUTME: Round-trip conversion between remote.Event and the Graph schema
package graph

import (
	"time"

	"github.com/dwelldigitally/learnlynk-calsync/remote"
)

// Graph speaks wall-clock datetimes paired with a timezone name. Responses
// carry up to seven fractional-second digits; requests send none.
const (
	graphTimeFormat      = "2006-01-02T15:04:05"
	graphTimeParseFormat = "2006-01-02T15:04:05.9999999"
)

func parseGraphTime(s string) (time.Time, error) {
	return time.Parse(graphTimeParseFormat, s)
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type graphAttendee struct {
	Type         string            `json:"type,omitempty"`
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEvent struct {
	ID        string `json:"id,omitempty"`
	ChangeKey string `json:"changeKey,omitempty"`
	Subject   string `json:"subject"`
	Body      struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Attendees             []graphAttendee `json:"attendees,omitempty"`
	IsOnlineMeeting       bool            `json:"isOnlineMeeting"`
	OnlineMeetingProvider string          `json:"onlineMeetingProvider,omitempty"`
	OnlineMeeting         *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting,omitempty"`
	Organizer *struct {
		EmailAddress graphEmailAddress `json:"emailAddress"`
	} `json:"organizer,omitempty"`
}

func toGraphEvent(event *remote.Event) *graphEvent {
	ev := &graphEvent{
		Subject: event.Title,
		Start:   graphDateTime{DateTime: event.StartTime.UTC().Format(graphTimeFormat), TimeZone: "UTC"},
		End:     graphDateTime{DateTime: event.EndTime.UTC().Format(graphTimeFormat), TimeZone: "UTC"},
	}
	ev.Body.ContentType = "text"
	ev.Body.Content = event.Description
	ev.Location.DisplayName = event.Location

	for _, address := range event.Attendees {
		ev.Attendees = append(ev.Attendees, graphAttendee{
			Type:         "required",
			EmailAddress: graphEmailAddress{Address: address},
		})
	}

	if event.IsOnlineMeeting {
		ev.IsOnlineMeeting = true
		ev.OnlineMeetingProvider = "teamsForBusiness"
	}

	return ev
}

func fromGraphEvent(ev *graphEvent) *remote.Event {
	event := &remote.Event{
		ID:              ev.ID,
		ChangeToken:     ev.ChangeKey,
		Title:           ev.Subject,
		Description:     ev.Body.Content,
		Location:        ev.Location.DisplayName,
		IsOnlineMeeting: ev.IsOnlineMeeting,
	}

	if start, err := parseGraphTime(ev.Start.DateTime); err == nil {
		event.StartTime = start.UTC()
	}
	if end, err := parseGraphTime(ev.End.DateTime); err == nil {
		event.EndTime = end.UTC()
	}

	for _, attendee := range ev.Attendees {
		event.Attendees = append(event.Attendees, attendee.EmailAddress.Address)
	}

	if ev.OnlineMeeting != nil {
		event.MeetingURL = ev.OnlineMeeting.JoinURL
	}
	if ev.Organizer != nil {
		event.Organizer = ev.Organizer.EmailAddress.Address
	}

	return event
}
