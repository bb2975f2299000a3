// ABOUTME: Calendar synchronization engine for local/remote reconciliation
// ABOUTME: Create, update, delete, bidirectional sync, and free/busy actions
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwelldigitally/learnlynk-calsync/models"
	"github.com/dwelldigitally/learnlynk-calsync/remote"
)

const (
	defaultPageSize = 100
	maxPageSize     = 250

	// Lookback window when a tenant has never synced before.
	initialSyncLookback = 30 * 24 * time.Hour

	activityCategory = "calendar"
)

// TokenProvider resolves a currently valid bearer token and the authenticated
// account's address for a user. Refresh and expiry are the provider's problem.
type TokenProvider interface {
	GetValidToken(ctx context.Context, userID string) (bearer, account string, err error)
}

// EventStore is the persistent table of calendar event records plus the
// per-tenant sync cursor. Lookups return nil, nil when no record exists.
type EventStore interface {
	InsertEvent(ctx context.Context, event *models.CalendarEvent) error
	FindEventByID(ctx context.Context, id uuid.UUID) (*models.CalendarEvent, error)
	FindEventByRemoteID(ctx context.Context, remoteID string) (*models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, event *models.CalendarEvent) error
	SyncCursor(ctx context.Context, tenantID string) (*models.SyncState, error)
	SetSyncStatus(ctx context.Context, tenantID, status string, errorMsg *string) error
	AdvanceSyncCursor(ctx context.Context, tenantID string, at time.Time) error
}

// ActivityLogger receives audit records of state-changing actions.
// Strictly best-effort: the engine swallows its errors.
type ActivityLogger interface {
	Append(ctx context.Context, tenantID, actorID, category, description string, payload map[string]interface{}) error
}

// Actor identifies the caller of an action.
type Actor struct {
	UserID   string
	TenantID string
}

// SyncSummary reports the outcome of a bidirectional sync run. Unchanged
// events are counted in Examined but not listed.
type SyncSummary struct {
	Examined int
	Created  []uuid.UUID
	Updated  []uuid.UUID
}

// Engine orchestrates the calendar sync actions. It holds no state between
// invocations; each action resolves a token, performs the remote operation,
// and reconciles the local store, in that order. The local write for a
// mutating action always happens after the remote call has returned.
type Engine struct {
	tokens   TokenProvider
	remote   remote.Client
	store    EventStore
	activity ActivityLogger
	now      func() time.Time
}

func NewEngine(tokens TokenProvider, client remote.Client, store EventStore, activity ActivityLogger) *Engine {
	return &Engine{
		tokens:   tokens,
		remote:   client,
		store:    store,
		activity: activity,
		now:      time.Now,
	}
}

// CreateEvent creates a scheduling record locally and on the remote calendar.
// The local record is persisted even when the remote call fails: a
// user-initiated create is never lost. On remote failure the record is saved
// as sync_failed and the failure is still returned alongside it.
func (e *Engine) CreateEvent(ctx context.Context, actor Actor, desc models.EventDescriptor) (*models.CalendarEvent, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}

	bearer, account, err := e.tokens.GetValidToken(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	event := &models.CalendarEvent{
		Title:           desc.Title,
		Description:     desc.Description,
		StartTime:       desc.StartTime.UTC(),
		EndTime:         desc.EndTime.UTC(),
		Location:        desc.Location,
		Attendees:       desc.Attendees,
		IsOnlineMeeting: desc.IsOnlineMeeting,
		Organizer:       account,
		LinkedLeadID:    desc.LinkedLeadID,
		SyncStatus:      models.SyncStatusUnsynced,
		Status:          models.EventStatusScheduled,
	}

	created, remoteErr := e.remote.CreateEvent(ctx, descriptorToRemote(desc, account), bearer)
	if remoteErr != nil {
		event.SyncStatus = models.SyncStatusFailed
	} else {
		now := e.now().UTC()
		event.RemoteEventID = created.ID
		event.RemoteChangeToken = created.ChangeToken
		event.MeetingURL = created.MeetingURL
		event.SyncStatus = models.SyncStatusSynced
		event.SyncDirection = models.DirectionToRemote
		event.LastSyncedAt = &now
	}

	if err := e.store.InsertEvent(ctx, event); err != nil {
		return nil, storeErr("insert", err)
	}

	if event.LinkedLeadID != nil {
		e.logActivity(ctx, actor, event, fmt.Sprintf("Scheduled %q", event.Title))
	}

	if remoteErr != nil {
		return event, fmt.Errorf("remote create failed, event %s saved locally as %s: %w",
			event.ID, event.SyncStatus, remoteErr)
	}

	return event, nil
}

// UpdateEvent pushes new field values to the remote calendar and, only on
// remote success, overwrites the local record. If the remote call fails the
// local record is byte-for-byte unchanged. A record that never reached the
// remote cannot be updated through this path.
func (e *Engine) UpdateEvent(ctx context.Context, actor Actor, localID uuid.UUID, desc models.EventDescriptor) (*models.CalendarEvent, error) {
	if err := validateDescriptor(desc); err != nil {
		return nil, err
	}

	event, err := e.store.FindEventByID(ctx, localID)
	if err != nil {
		return nil, storeErr("lookup", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, localID)
	}
	if event.Status == models.EventStatusCancelled {
		return nil, fmt.Errorf("%w: %s", ErrEventCancelled, localID)
	}
	if event.RemoteEventID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotYetSynced, localID)
	}

	bearer, _, err := e.tokens.GetValidToken(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	updated, remoteErr := e.remote.UpdateEvent(ctx, event.RemoteEventID, descriptorToRemote(desc, event.Organizer), bearer)
	if remoteErr != nil {
		if errors.Is(remoteErr, remote.ErrNotFound) {
			// Orphaned record: the remote counterpart vanished. Mark it so
			// the caller can decide whether to recreate.
			event.SyncStatus = models.SyncStatusFailed
			if err := e.store.UpdateEvent(ctx, event); err != nil {
				return nil, storeErr("mark orphan", err)
			}
			return event, fmt.Errorf("%w: %v", ErrRemoteEventMissing, remoteErr)
		}
		return nil, remoteErr
	}

	now := e.now().UTC()
	event.Title = desc.Title
	event.Description = desc.Description
	event.StartTime = desc.StartTime.UTC()
	event.EndTime = desc.EndTime.UTC()
	event.Location = desc.Location
	event.Attendees = desc.Attendees
	event.IsOnlineMeeting = desc.IsOnlineMeeting
	event.LinkedLeadID = desc.LinkedLeadID
	event.RemoteChangeToken = updated.ChangeToken
	if updated.MeetingURL != "" {
		event.MeetingURL = updated.MeetingURL
	}
	event.SyncStatus = models.SyncStatusSynced
	event.SyncDirection = models.DirectionToRemote
	event.LastSyncedAt = &now

	if err := e.store.UpdateEvent(ctx, event); err != nil {
		return nil, storeErr("update", err)
	}

	if event.LinkedLeadID != nil {
		e.logActivity(ctx, actor, event, fmt.Sprintf("Rescheduled %q", event.Title))
	}

	return event, nil
}

// DeleteEvent cancels a record after its remote counterpart is confirmed
// absent. The remote delete is idempotent: a "not found" means absence
// already holds. On any other remote failure the local record is left
// unchanged, because cancellation must never be assumed when unconfirmed.
func (e *Engine) DeleteEvent(ctx context.Context, actor Actor, localID uuid.UUID) error {
	event, err := e.store.FindEventByID(ctx, localID)
	if err != nil {
		return storeErr("lookup", err)
	}
	if event == nil {
		return fmt.Errorf("%w: %s", ErrEventNotFound, localID)
	}
	if event.Status == models.EventStatusCancelled {
		return nil
	}

	if event.RemoteEventID != "" {
		bearer, _, err := e.tokens.GetValidToken(ctx, actor.UserID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
		}

		if err := e.remote.DeleteEvent(ctx, event.RemoteEventID, bearer); err != nil {
			return err
		}

		now := e.now().UTC()
		event.SyncStatus = models.SyncStatusSynced
		event.LastSyncedAt = &now
	}

	event.Status = models.EventStatusCancelled

	if err := e.store.UpdateEvent(ctx, event); err != nil {
		return storeErr("update", err)
	}

	if event.LinkedLeadID != nil {
		e.logActivity(ctx, actor, event, fmt.Sprintf("Cancelled %q", event.Title))
	}

	return nil
}

// SyncEvents pulls remote events changed since a timestamp and reconciles
// them into the local store. Unknown events are materialized locally; known
// events are refreshed only when their change token differs. Events absent
// from the listed window are never deleted locally, because absence from a
// paged time-window query is not proof of deletion.
func (e *Engine) SyncEvents(ctx context.Context, actor Actor, since *time.Time, pageSize int) (*SyncSummary, error) {
	bearer, _, err := e.tokens.GetValidToken(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	startedAt := e.now().UTC()

	from, err := e.resolveSince(ctx, actor.TenantID, since, startedAt)
	if err != nil {
		return nil, err
	}

	if err := e.store.SetSyncStatus(ctx, actor.TenantID, models.SyncRunSyncing, nil); err != nil {
		return nil, storeErr("set status", err)
	}

	summary := &SyncSummary{}
	pageToken := ""

	for {
		page, err := e.remote.ListEvents(ctx, remote.ListQuery{
			Since:     from,
			PageSize:  pageSize,
			PageToken: pageToken,
		}, bearer)
		if err != nil {
			e.recordSyncError(ctx, actor.TenantID, err)
			return nil, err
		}

		for i := range page.Events {
			summary.Examined++
			outcome, localID, err := e.reconcile(ctx, &page.Events[i])
			if err != nil {
				e.recordSyncError(ctx, actor.TenantID, err)
				return nil, err
			}
			switch outcome {
			case outcomeCreated:
				summary.Created = append(summary.Created, localID)
			case outcomeUpdated:
				summary.Updated = append(summary.Updated, localID)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := e.store.AdvanceSyncCursor(ctx, actor.TenantID, startedAt); err != nil {
		return nil, storeErr("advance cursor", err)
	}

	return summary, nil
}

// GetFreeBusy computes per-address busy intervals over a window.
func (e *Engine) GetFreeBusy(ctx context.Context, actor Actor, addresses []string, window remote.Window) (map[string][]remote.BusyPeriod, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("at least one address is required")
	}
	if !window.Start.Before(window.End) {
		return nil, fmt.Errorf("window start must be before end")
	}

	bearer, _, err := e.tokens.GetValidToken(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	return e.remote.FreeBusy(ctx, addresses, window, bearer)
}

const (
	outcomeCreated   = "created"
	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
)

// reconcile brings one observed remote event in line with the local store.
// Remote state wins for the fields it owns, with two guards: cancelled
// records are terminal, and a sync_failed record holds a pending local write
// that sync must not override.
func (e *Engine) reconcile(ctx context.Context, rev *remote.Event) (string, uuid.UUID, error) {
	local, err := e.store.FindEventByRemoteID(ctx, rev.ID)
	if err != nil {
		return "", uuid.Nil, storeErr("lookup by remote id", err)
	}

	now := e.now().UTC()

	if local == nil {
		event := &models.CalendarEvent{
			RemoteEventID:     rev.ID,
			RemoteChangeToken: rev.ChangeToken,
			Title:             rev.Title,
			Description:       rev.Description,
			StartTime:         rev.StartTime.UTC(),
			EndTime:           rev.EndTime.UTC(),
			Location:          rev.Location,
			Attendees:         rev.Attendees,
			IsOnlineMeeting:   rev.IsOnlineMeeting,
			MeetingURL:        rev.MeetingURL,
			Organizer:         rev.Organizer,
			SyncStatus:        models.SyncStatusSynced,
			SyncDirection:     models.DirectionFromRemote,
			Status:            models.EventStatusScheduled,
			LastSyncedAt:      &now,
		}
		if err := e.store.InsertEvent(ctx, event); err != nil {
			return "", uuid.Nil, storeErr("materialize", err)
		}
		return outcomeCreated, event.ID, nil
	}

	if local.Status == models.EventStatusCancelled {
		return outcomeUnchanged, local.ID, nil
	}
	if local.SyncStatus == models.SyncStatusFailed {
		return outcomeUnchanged, local.ID, nil
	}
	if local.RemoteChangeToken == rev.ChangeToken {
		return outcomeUnchanged, local.ID, nil
	}

	local.Title = rev.Title
	local.Description = rev.Description
	local.StartTime = rev.StartTime.UTC()
	local.EndTime = rev.EndTime.UTC()
	local.Location = rev.Location
	local.RemoteChangeToken = rev.ChangeToken
	local.SyncStatus = models.SyncStatusSynced
	local.SyncDirection = models.DirectionFromRemote
	local.LastSyncedAt = &now

	if err := e.store.UpdateEvent(ctx, local); err != nil {
		return "", uuid.Nil, storeErr("refresh", err)
	}

	return outcomeUpdated, local.ID, nil
}

// resolveSince picks the sync window start: explicit argument, then the
// tenant's persisted cursor, then a fixed lookback for first-time syncs.
func (e *Engine) resolveSince(ctx context.Context, tenantID string, since *time.Time, now time.Time) (time.Time, error) {
	if since != nil {
		return since.UTC(), nil
	}

	cursor, err := e.store.SyncCursor(ctx, tenantID)
	if err != nil {
		return time.Time{}, storeErr("read cursor", err)
	}
	if cursor != nil && cursor.LastSyncTime != nil {
		return cursor.LastSyncTime.UTC(), nil
	}

	return now.Add(-initialSyncLookback), nil
}

func (e *Engine) recordSyncError(ctx context.Context, tenantID string, err error) {
	msg := err.Error()
	_ = e.store.SetSyncStatus(ctx, tenantID, models.SyncRunError, &msg)
}

// logActivity appends an audit record. Failures are swallowed: logging never
// fails the primary action.
func (e *Engine) logActivity(ctx context.Context, actor Actor, event *models.CalendarEvent, description string) {
	if e.activity == nil {
		return
	}

	payload := map[string]interface{}{
		"event_id": event.ID.String(),
	}
	if event.RemoteEventID != "" {
		payload["remote_event_id"] = event.RemoteEventID
	}
	if event.LinkedLeadID != nil {
		payload["lead_id"] = event.LinkedLeadID.String()
	}

	_ = e.activity.Append(ctx, actor.TenantID, actor.UserID, activityCategory, description, payload)
}

func descriptorToRemote(desc models.EventDescriptor, organizer string) *remote.Event {
	return &remote.Event{
		Title:           desc.Title,
		Description:     desc.Description,
		StartTime:       desc.StartTime.UTC(),
		EndTime:         desc.EndTime.UTC(),
		Location:        desc.Location,
		Attendees:       desc.Attendees,
		IsOnlineMeeting: desc.IsOnlineMeeting,
		Organizer:       organizer,
	}
}

func validateDescriptor(desc models.EventDescriptor) error {
	if desc.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if !desc.StartTime.Before(desc.EndTime) {
		return fmt.Errorf("event start must be before end")
	}
	return nil
}
