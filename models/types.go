// ABOUTME: Data models for calendar sync entities
// ABOUTME: Defines CalendarEvent, EventDescriptor, and per-tenant sync state
package models

import (
	"time"

	"github.com/google/uuid"
)

// CalendarEvent is the locally persisted scheduling record. The local id is
// owned by the store; remote id and change token are assigned only by the
// remote calendar service and never fabricated locally.
type CalendarEvent struct {
	ID                uuid.UUID  `json:"id"`
	RemoteEventID     string     `json:"remote_event_id,omitempty"`
	RemoteChangeToken string     `json:"remote_change_token,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	Location          string     `json:"location,omitempty"`
	Attendees         []string   `json:"attendees,omitempty"`
	IsOnlineMeeting   bool       `json:"is_online_meeting"`
	MeetingURL        string     `json:"meeting_url,omitempty"`
	Organizer         string     `json:"organizer,omitempty"`
	LinkedLeadID      *uuid.UUID `json:"linked_lead_id,omitempty"`
	SyncStatus        string     `json:"sync_status"`
	SyncDirection     string     `json:"sync_direction,omitempty"`
	Status            string     `json:"status"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EventDescriptor is the caller-supplied shape for create and update.
type EventDescriptor struct {
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Location        string     `json:"location,omitempty"`
	Attendees       []string   `json:"attendees,omitempty"`
	IsOnlineMeeting bool       `json:"is_online_meeting"`
	LinkedLeadID    *uuid.UUID `json:"linked_lead_id,omitempty"`
}

// Sync status constants.
const (
	SyncStatusUnsynced = "unsynced"
	SyncStatusSynced   = "synced"
	SyncStatusFailed   = "sync_failed"
)

// Sync direction constants. Diagnostic only: records whether the last
// successful reconciliation was driven by a local write or discovered remotely.
const (
	DirectionToRemote   = "to_remote"
	DirectionFromRemote = "from_remote"
)

// Event lifecycle constants. Cancelled is terminal; records are never
// physically deleted once they carry a remote id.
const (
	EventStatusScheduled = "scheduled"
	EventStatusCancelled = "cancelled"
)

// Sync run status constants.
const (
	SyncRunIdle    = "idle"
	SyncRunSyncing = "syncing"
	SyncRunError   = "error"
)

// SyncState is the per-tenant sync cursor and run bookkeeping.
type SyncState struct {
	TenantID     string     `json:"tenant_id"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
