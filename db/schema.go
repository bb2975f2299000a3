// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	remote_event_id TEXT,
	remote_change_token TEXT,
	title TEXT NOT NULL,
	description TEXT,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	location TEXT,
	attendees TEXT,
	is_online_meeting INTEGER NOT NULL DEFAULT 0,
	meeting_url TEXT,
	organizer TEXT,
	linked_lead_id TEXT,
	sync_status TEXT NOT NULL DEFAULT 'unsynced' CHECK(sync_status IN ('unsynced', 'synced', 'sync_failed')),
	sync_direction TEXT CHECK(sync_direction IN ('to_remote', 'from_remote')),
	status TEXT NOT NULL DEFAULT 'scheduled' CHECK(status IN ('scheduled', 'cancelled')),
	last_synced_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_calendar_events_remote_id ON calendar_events(remote_event_id) WHERE remote_event_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_calendar_events_start ON calendar_events(start_time);
CREATE INDEX IF NOT EXISTS idx_calendar_events_lead ON calendar_events(linked_lead_id);
CREATE INDEX IF NOT EXISTS idx_calendar_events_sync_status ON calendar_events(sync_status);

CREATE TABLE IF NOT EXISTS sync_state (
	tenant_id TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS activity_log (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	category TEXT NOT NULL,
	description TEXT NOT NULL,
	payload TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activity_log_tenant ON activity_log(tenant_id, created_at DESC);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
