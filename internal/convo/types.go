package convo

import "time"

// Message is a normalized direct message. Immutable once created.
// ID is the server-assigned identifier and the sole dedup key; history
// entries that arrive without one get a locally synthesized placeholder
// at the transport boundary.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Text           string
	Timestamp      time.Time
}

// Peer is a participant profile from the platform directory.
type Peer struct {
	ID     string
	Name   string
	Email  string
	Role   string
	Skills []string
}

// Summary is the denormalized conversation list entry for one peer.
type Summary struct {
	Peer            Peer
	LastMessage     string
	LastMessageTime time.Time
	UnreadCount     int
}

// History carries a full ordered message sequence for one conversation.
// Published as the view.history_loaded payload.
type History struct {
	ConversationID string
	Messages       []*Message
}

// LoadState tags a conversation's position in the history-load lifecycle.
type LoadState int

const (
	// Unloaded means no history request has been issued yet.
	Unloaded LoadState = iota
	// Loading means a history request is in flight.
	Loading
	// Loaded means history has been applied; live events append to it.
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unloaded"
	}
}
