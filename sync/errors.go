// ABOUTME: Engine-side error taxonomy for calendar sync actions
// ABOUTME: Sentinels discriminated by callers via errors.Is
package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthUnavailable means no bearer token could be obtained. Fatal for
	// the action; nothing is persisted.
	ErrAuthUnavailable = errors.New("calendar credentials unavailable")

	// ErrNotYetSynced means the record has no remote counterpart yet. The
	// caller must use create semantics or wait for a pending create to
	// resolve; there is no automatic promotion.
	ErrNotYetSynced = errors.New("event has no remote counterpart yet")

	// ErrRemoteEventMissing means the remote counterpart vanished. The local
	// record is marked sync_failed so the caller can decide whether to
	// recreate it.
	ErrRemoteEventMissing = errors.New("remote event no longer exists")

	// ErrEventNotFound means no local record exists for the given id.
	ErrEventNotFound = errors.New("calendar event not found")

	// ErrEventCancelled means the record is cancelled, which is terminal:
	// no further remote create or update may be attempted for it.
	ErrEventCancelled = errors.New("calendar event is cancelled")
)

// storeErr wraps local persistence failures. Always fatal, surfaced verbatim.
func storeErr(op string, err error) error {
	return fmt.Errorf("event store %s: %w", op, err)
}
