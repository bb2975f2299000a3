// ABOUTME: Error taxonomy for remote calendar adapters
// ABOUTME: Sentinel errors discriminated by the engine via errors.Is
package remote

import "errors"

var (
	// ErrUnavailable covers transport failures, timeouts, and 5xx responses.
	ErrUnavailable = errors.New("remote calendar service unavailable")

	// ErrRejected means the service validated and refused the request.
	// Permanent for that payload; not retried automatically.
	ErrRejected = errors.New("remote calendar service rejected the request")

	// ErrNotFound means the target event no longer exists remotely.
	ErrNotFound = errors.New("remote event not found")
)
