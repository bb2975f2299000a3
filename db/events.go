// ABOUTME: Calendar event database operations
// ABOUTME: Handles insert, lookup by local and remote id, and updates
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwelldigitally/learnlynk-calsync/models"
)

// Store is the local event store backed by SQLite. Records are never
// physically deleted; cancellation is a status change.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, remote_event_id, remote_change_token, title, description,
	start_time, end_time, location, attendees, is_online_meeting, meeting_url,
	organizer, linked_lead_id, sync_status, sync_direction, status, last_synced_at,
	created_at, updated_at`

func (s *Store) InsertEvent(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	attendees, err := marshalAttendees(event.Attendees)
	if err != nil {
		return err
	}

	var leadID *string
	if event.LinkedLeadID != nil {
		s := event.LinkedLeadID.String()
		leadID = &s
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID.String(),
		nullIfEmpty(event.RemoteEventID),
		nullIfEmpty(event.RemoteChangeToken),
		event.Title,
		event.Description,
		event.StartTime.UTC(),
		event.EndTime.UTC(),
		event.Location,
		attendees,
		event.IsOnlineMeeting,
		nullIfEmpty(event.MeetingURL),
		nullIfEmpty(event.Organizer),
		leadID,
		event.SyncStatus,
		nullIfEmpty(event.SyncDirection),
		event.Status,
		event.LastSyncedAt,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calendar event: %w", err)
	}

	return nil
}

// FindEventByID returns nil, nil when no record exists.
func (s *Store) FindEventByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM calendar_events WHERE id = ?
	`, id.String())
	return scanEvent(row)
}

// FindEventByRemoteID returns nil, nil when no record exists.
func (s *Store) FindEventByRemoteID(ctx context.Context, remoteID string) (*models.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM calendar_events WHERE remote_event_id = ?
	`, remoteID)
	return scanEvent(row)
}

func (s *Store) UpdateEvent(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()

	attendees, err := marshalAttendees(event.Attendees)
	if err != nil {
		return err
	}

	var leadID *string
	if event.LinkedLeadID != nil {
		s := event.LinkedLeadID.String()
		leadID = &s
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE calendar_events SET
			remote_event_id = ?,
			remote_change_token = ?,
			title = ?,
			description = ?,
			start_time = ?,
			end_time = ?,
			location = ?,
			attendees = ?,
			is_online_meeting = ?,
			meeting_url = ?,
			organizer = ?,
			linked_lead_id = ?,
			sync_status = ?,
			sync_direction = ?,
			status = ?,
			last_synced_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		nullIfEmpty(event.RemoteEventID),
		nullIfEmpty(event.RemoteChangeToken),
		event.Title,
		event.Description,
		event.StartTime.UTC(),
		event.EndTime.UTC(),
		event.Location,
		attendees,
		event.IsOnlineMeeting,
		nullIfEmpty(event.MeetingURL),
		nullIfEmpty(event.Organizer),
		leadID,
		event.SyncStatus,
		nullIfEmpty(event.SyncDirection),
		event.Status,
		event.LastSyncedAt,
		event.UpdatedAt,
		event.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("calendar event %s does not exist", event.ID)
	}

	return nil
}

// ListEvents returns the most recently starting events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]models.CalendarEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM calendar_events
		ORDER BY start_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.CalendarEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	event := &models.CalendarEvent{}
	var (
		remoteID     sql.NullString
		changeToken  sql.NullString
		description  sql.NullString
		location     sql.NullString
		attendees    sql.NullString
		meetingURL   sql.NullString
		organizer    sql.NullString
		leadID       sql.NullString
		direction    sql.NullString
		lastSyncedAt sql.NullTime
	)

	err := row.Scan(
		&event.ID,
		&remoteID,
		&changeToken,
		&event.Title,
		&description,
		&event.StartTime,
		&event.EndTime,
		&location,
		&attendees,
		&event.IsOnlineMeeting,
		&meetingURL,
		&organizer,
		&leadID,
		&event.SyncStatus,
		&direction,
		&event.Status,
		&lastSyncedAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan calendar event: %w", err)
	}

	event.RemoteEventID = remoteID.String
	event.RemoteChangeToken = changeToken.String
	event.Description = description.String
	event.Location = location.String
	event.MeetingURL = meetingURL.String
	event.Organizer = organizer.String
	event.SyncDirection = direction.String
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		event.LastSyncedAt = &t
	}
	if leadID.Valid {
		lid, err := uuid.Parse(leadID.String)
		if err == nil {
			event.LinkedLeadID = &lid
		}
	}
	if attendees.Valid && attendees.String != "" {
		if err := json.Unmarshal([]byte(attendees.String), &event.Attendees); err != nil {
			return nil, fmt.Errorf("failed to decode attendees: %w", err)
		}
	}

	return event, nil
}

func marshalAttendees(attendees []string) (*string, error) {
	if len(attendees) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attendees)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attendees: %w", err)
	}
	s := string(data)
	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
