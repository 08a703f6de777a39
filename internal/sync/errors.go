package sync

import "errors"

var (
	// ErrEmptyMessage is returned by Send for empty or whitespace-only text.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrNotConnected is returned by Send when the gateway is down. Sends
	// are rejected rather than queued: there is no outbox, only the
	// connect-deferred history request path.
	ErrNotConnected = errors.New("gateway not connected")
)
