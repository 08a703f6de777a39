package archive

// Conversation is an archived conversation row.
type Conversation struct {
	ID                 string
	PeerID             string
	PeerName           string
	UnreadCount        int
	LastMessageAt      int64
	LastMessagePreview string
}

// Message is an archived message row. MsgID is the gateway-assigned id;
// RowID is the local autoincrement key used by the FTS index.
type Message struct {
	RowID          int64
	ConversationID string
	MsgID          string
	SenderID       string
	SenderName     string
	Text           string
	Timestamp      int64
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
