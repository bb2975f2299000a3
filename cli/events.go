// ABOUTME: Calendar event CLI commands
// ABOUTME: Human-friendly create/update/delete/list over the sync engine
package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/dwelldigitally/learnlynk-calsync/db"
	"github.com/dwelldigitally/learnlynk-calsync/models"
	"github.com/dwelldigitally/learnlynk-calsync/sync"
)

// CreateEventCommand schedules a new event locally and on the remote calendar.
func CreateEventCommand(engine *sync.Engine, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	title := fs.String("title", "", "Event title (required)")
	description := fs.String("description", "", "Event description")
	start := fs.String("start", "", "Start time, RFC3339 (required)")
	end := fs.String("end", "", "End time, RFC3339 (required)")
	location := fs.String("location", "", "Location")
	attendees := fs.String("attendees", "", "Comma-separated attendee addresses")
	online := fs.Bool("online", false, "Request an online meeting")
	lead := fs.String("lead", "", "Linked lead id")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	desc, err := buildDescriptor(*title, *description, *start, *end, *location, *attendees, *online, *lead)
	if err != nil {
		return err
	}

	event, err := engine.CreateEvent(context.Background(), actor, desc)
	if err != nil {
		if event != nil {
			// Intent preserved: the record exists locally even though the
			// remote call failed.
			fmt.Printf("⚠ Remote create failed; event %s saved locally as %s\n", event.ID, event.SyncStatus)
		}
		return err
	}

	fmt.Printf("✓ Created event %s (remote id %s)\n", event.ID, event.RemoteEventID)
	if event.MeetingURL != "" {
		fmt.Printf("  Join URL: %s\n", event.MeetingURL)
	}
	return nil
}

// UpdateEventCommand pushes new field values for an already-synced event.
func UpdateEventCommand(engine *sync.Engine, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.String("id", "", "Local event id (required)")
	title := fs.String("title", "", "Event title (required)")
	description := fs.String("description", "", "Event description")
	start := fs.String("start", "", "Start time, RFC3339 (required)")
	end := fs.String("end", "", "End time, RFC3339 (required)")
	location := fs.String("location", "", "Location")
	attendees := fs.String("attendees", "", "Comma-separated attendee addresses")
	online := fs.Bool("online", false, "Request an online meeting")
	lead := fs.String("lead", "", "Linked lead id")
	_ = fs.Parse(args)

	localID, err := parseEventID(*id)
	if err != nil {
		return err
	}
	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	desc, err := buildDescriptor(*title, *description, *start, *end, *location, *attendees, *online, *lead)
	if err != nil {
		return err
	}

	event, err := engine.UpdateEvent(context.Background(), actor, localID, desc)
	if err != nil {
		if errors.Is(err, sync.ErrRemoteEventMissing) {
			fmt.Printf("⚠ Remote event vanished; local record marked %s. Recreate if still needed.\n", models.SyncStatusFailed)
		}
		return err
	}

	fmt.Printf("✓ Updated event %s\n", event.ID)
	return nil
}

// DeleteEventCommand cancels an event after confirming remote absence.
func DeleteEventCommand(engine *sync.Engine, actor sync.Actor, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Local event id (required)")
	_ = fs.Parse(args)

	localID, err := parseEventID(*id)
	if err != nil {
		return err
	}

	if err := engine.DeleteEvent(context.Background(), actor, localID); err != nil {
		return err
	}

	fmt.Printf("✓ Cancelled event %s\n", localID)
	return nil
}

// ListEventsCommand prints the most recent local records.
func ListEventsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum events to list")
	_ = fs.Parse(args)

	store := db.NewStore(database)
	events, err := store.ListEvents(context.Background(), *limit)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTART\tSTATUS\tSYNC\tREMOTE ID")
	for _, event := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			event.ID,
			event.Title,
			event.StartTime.Format(time.RFC3339),
			event.Status,
			event.SyncStatus,
			event.RemoteEventID,
		)
	}
	return w.Flush()
}

func buildDescriptor(title, description, start, end, location, attendees string, online bool, lead string) (models.EventDescriptor, error) {
	var desc models.EventDescriptor

	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return desc, fmt.Errorf("invalid --start (want RFC3339): %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return desc, fmt.Errorf("invalid --end (want RFC3339): %w", err)
	}

	desc = models.EventDescriptor{
		Title:           title,
		Description:     description,
		StartTime:       startTime,
		EndTime:         endTime,
		Location:        location,
		IsOnlineMeeting: online,
	}

	if attendees != "" {
		for _, address := range strings.Split(attendees, ",") {
			if trimmed := strings.TrimSpace(address); trimmed != "" {
				desc.Attendees = append(desc.Attendees, trimmed)
			}
		}
	}

	if lead != "" {
		leadID, err := uuid.Parse(lead)
		if err != nil {
			return desc, fmt.Errorf("invalid --lead: %w", err)
		}
		desc.LinkedLeadID = &leadID
	}

	return desc, nil
}

func parseEventID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --id: %w", err)
	}
	return id, nil
}
