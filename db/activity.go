// ABOUTME: Activity log persistence for the audit trail
// ABOUTME: Append-only records of state-changing calendar actions
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActivityLog appends audit records for state-changing actions. Callers treat
// it as best-effort: the engine never fails a primary action on a log error.
type ActivityLog struct {
	db *sql.DB
}

func NewActivityLog(db *sql.DB) *ActivityLog {
	return &ActivityLog{db: db}
}

func (l *ActivityLog) Append(ctx context.Context, tenantID, actorID, category, description string, payload map[string]interface{}) error {
	var payloadVal sql.NullString
	if len(payload) > 0 {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode activity payload: %w", err)
		}
		payloadVal = sql.NullString{String: string(data), Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, tenant_id, actor_id, category, description, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, newActivityID(), tenantID, actorID, category, description, payloadVal)

	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	return nil
}

func newActivityID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
