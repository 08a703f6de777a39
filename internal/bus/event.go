package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published across the client. Namespaces:
//
//	net.*     — gateway transport events, consumed by the sync engine
//	view.*    — render notifications, consumed by the TUI
//	session.* — connection status changes
const (
	KindNetConnected    = "net.connected"
	KindNetDisconnected = "net.disconnected"
	KindNetMessage      = "net.message"
	KindNetHistory      = "net.history"
	KindNetError        = "net.error"

	KindViewHistoryLoaded    = "view.history_loaded"
	KindViewMessageAppended  = "view.message_appended"
	KindViewDirectoryUpdated = "view.directory_updated"

	KindStatusChanged = "session.status_changed"
)
