// ABOUTME: Database operations for the per-tenant sync_state table
// ABOUTME: Tracks sync run status and the cursor for incremental syncs
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dwelldigitally/learnlynk-calsync/models"
)

// SyncCursor retrieves the sync state for a tenant. Returns nil, nil when the
// tenant has never synced.
func (s *Store) SyncCursor(ctx context.Context, tenantID string) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, last_sync_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE tenant_id = ?
	`, tenantID).Scan(
		&state.TenantID,
		&lastSyncTime,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// SetSyncStatus updates the run status for a tenant without touching the cursor.
func (s *Store) SetSyncStatus(ctx context.Context, tenantID, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (tenant_id, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, tenantID, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// AdvanceSyncCursor records a successful run: cursor moves to at, status
// returns to idle, and any previous error is cleared.
func (s *Store) AdvanceSyncCursor(ctx context.Context, tenantID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (tenant_id, last_sync_time, status, created_at, updated_at)
		VALUES (?, ?, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(tenant_id) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, tenantID, at.UTC())

	if err != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", err)
	}

	return nil
}
