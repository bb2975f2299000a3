// ABOUTME: Tests for the Microsoft Graph calendar adapter
// ABOUTME: Verifies payload round trips, status mapping, and pagination
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwelldigitally/learnlynk-calsync/remote"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithBaseURL(server.URL, 5*time.Second)
}

func sampleEvent() *remote.Event {
	return &remote.Event{
		Title:           "Intake Interview",
		Description:     "First round",
		StartTime:       time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
		Location:        "Admissions Office",
		Attendees:       []string{"applicant@mail.test"},
		IsOnlineMeeting: true,
	}
}

func TestCreateEventRoundTrip(t *testing.T) {
	var received graphEvent
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/me/events", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":        "evt_1",
			"changeKey": "ck_1",
			"subject":   received.Subject,
			"body":      map[string]string{"contentType": "text", "content": received.Body.Content},
			"start":     map[string]string{"dateTime": "2025-03-01T14:00:00.0000000", "timeZone": "UTC"},
			"end":       map[string]string{"dateTime": "2025-03-01T14:30:00.0000000", "timeZone": "UTC"},
			"location":  map[string]string{"displayName": "Admissions Office"},
			"attendees": []map[string]interface{}{
				{"type": "required", "emailAddress": map[string]string{"address": "applicant@mail.test"}},
			},
			"isOnlineMeeting": true,
			"onlineMeeting":   map[string]string{"joinUrl": "https://teams.example/join/abc"},
		})
	})

	created, err := client.CreateEvent(context.Background(), sampleEvent(), "tok-1")
	require.NoError(t, err)

	// Request side: internal shape translated to the Graph schema.
	assert.Equal(t, "Intake Interview", received.Subject)
	assert.Equal(t, "First round", received.Body.Content)
	assert.Equal(t, "2025-03-01T14:00:00", received.Start.DateTime)
	assert.Equal(t, "UTC", received.Start.TimeZone)
	assert.Equal(t, "Admissions Office", received.Location.DisplayName)
	require.Len(t, received.Attendees, 1)
	assert.Equal(t, "applicant@mail.test", received.Attendees[0].EmailAddress.Address)
	assert.True(t, received.IsOnlineMeeting)
	assert.Equal(t, "teamsForBusiness", received.OnlineMeetingProvider)

	// Response side: remote id, change token, and join URL surfaced.
	assert.Equal(t, "evt_1", created.ID)
	assert.Equal(t, "ck_1", created.ChangeToken)
	assert.Equal(t, "https://teams.example/join/abc", created.MeetingURL)
	assert.True(t, created.StartTime.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"applicant@mail.test"}, created.Attendees)
}

func TestCreateEventStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, remote.ErrRejected},
		{"unauthorized", http.StatusUnauthorized, remote.ErrRejected},
		{"server error", http.StatusInternalServerError, remote.ErrUnavailable},
		{"service unavailable", http.StatusServiceUnavailable, remote.ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := client.CreateEvent(context.Background(), sampleEvent(), "tok")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestCreateEventTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClientWithBaseURL(server.URL, 5*time.Second)
	server.Close() // connection refused from here on

	_, err := client.CreateEvent(context.Background(), sampleEvent(), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrUnavailable))
}

func TestUpdateEventNotFound(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.UpdateEvent(context.Background(), "evt_gone", sampleEvent(), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrNotFound))
}

func TestDeleteEventIdempotent(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusGone} {
		t.Run(fmt.Sprintf("status %d", status), func(t *testing.T) {
			client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodDelete, r.Method)
				w.WriteHeader(status)
			})

			err := client.DeleteEvent(context.Background(), "evt_2", "tok")
			assert.NoError(t, err, "absence already holds, delete must succeed")
		})
	}
}

func TestDeleteEventUnavailable(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.DeleteEvent(context.Background(), "evt_2", "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, remote.ErrUnavailable))
}

func TestListEventsPagination(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			assert.Equal(t, "/me/events", r.URL.Path)
			assert.Contains(t, r.URL.RawQuery, "lastModifiedDateTime+ge")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{{
					"id":        "evt_a",
					"changeKey": "ck_a",
					"subject":   "A",
					"start":     map[string]string{"dateTime": "2025-03-01T09:00:00.0000000", "timeZone": "UTC"},
					"end":       map[string]string{"dateTime": "2025-03-01T10:00:00.0000000", "timeZone": "UTC"},
				}},
				"@odata.nextLink": server.URL + "/me/events?$skiptoken=page2",
			})
		case 2:
			assert.Contains(t, r.URL.RawQuery, "skiptoken")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"value": []map[string]interface{}{{
					"id":        "evt_b",
					"changeKey": "ck_b",
					"subject":   "B",
					"start":     map[string]string{"dateTime": "2025-03-01T11:00:00.0000000", "timeZone": "UTC"},
					"end":       map[string]string{"dateTime": "2025-03-01T12:00:00.0000000", "timeZone": "UTC"},
				}},
			})
		}
	}))
	t.Cleanup(server.Close)
	client := NewClientWithBaseURL(server.URL, 5*time.Second)

	since := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	page, err := client.ListEvents(context.Background(), remote.ListQuery{Since: since, PageSize: 50}, "tok")
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "evt_a", page.Events[0].ID)
	require.NotEmpty(t, page.NextPageToken)

	page, err = client.ListEvents(context.Background(), remote.ListQuery{PageToken: page.NextPageToken}, "tok")
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "evt_b", page.Events[0].ID)
	assert.Empty(t, page.NextPageToken)
}

func TestFreeBusyParsing(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/me/calendar/getSchedule", r.URL.Path)

		var body struct {
			Schedules []string `json:"schedules"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"counselor@school.test"}, body.Schedules)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]interface{}{{
				"scheduleId": "counselor@school.test",
				"scheduleItems": []map[string]interface{}{
					{
						"status": "busy",
						"start":  map[string]string{"dateTime": "2025-03-01T14:00:00.0000000", "timeZone": "UTC"},
						"end":    map[string]string{"dateTime": "2025-03-01T15:00:00.0000000", "timeZone": "UTC"},
					},
					{
						"status": "free",
						"start":  map[string]string{"dateTime": "2025-03-01T15:00:00.0000000", "timeZone": "UTC"},
						"end":    map[string]string{"dateTime": "2025-03-01T16:00:00.0000000", "timeZone": "UTC"},
					},
				},
			}},
		})
	})

	window := remote.Window{
		Start: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC),
	}
	busy, err := client.FreeBusy(context.Background(), []string{"counselor@school.test"}, window, "tok")
	require.NoError(t, err)

	periods := busy["counselor@school.test"]
	require.Len(t, periods, 1, "free slots must not appear as busy periods")
	assert.True(t, periods[0].Start.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)))
	assert.True(t, periods[0].End.Equal(time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)))
}
