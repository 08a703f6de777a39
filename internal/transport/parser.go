package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/google/uuid"
)

// Event names on the gateway socket.
const (
	EventRegister            = "register"
	EventLoadConversation    = "load_conversation"
	EventSendMessage         = "send_message"
	EventReceiveMessage      = "receive_message"
	EventConversationHistory = "conversation_history"
	EventError               = "error"
)

// frame is the wire envelope for every gateway event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wireMessage mirrors the gateway's message payload. The gateway emits
// both snake_case and camelCase spellings for some fields; the snake_case
// spelling is primary and camelCase the fallback. Normalization happens
// here, at the boundary — nothing past this package branches on field
// presence.
type wireMessage struct {
	ID                string `json:"id"`
	ConversationID    string `json:"conversation_id"`
	ConversationIDAlt string `json:"conversationId"`
	SenderID          string `json:"sender_id"`
	SenderIDAlt       string `json:"senderId"`
	SenderName        string `json:"sender_name"`
	SenderNameAlt     string `json:"senderName"`
	Text              string `json:"text"`
	Timestamp         string `json:"timestamp"`
}

type wireHistory struct {
	ConversationID    string        `json:"conversation_id"`
	ConversationIDAlt string        `json:"conversationId"`
	Messages          []wireMessage `json:"messages"`
}

// Outbound payloads.

type registerPayload struct {
	SelfID string `json:"self_id"`
}

type loadConversationPayload struct {
	SelfID string `json:"self_id"`
	PeerID string `json:"peer_id"`
}

type sendMessagePayload struct {
	SelfID     string `json:"self_id"`
	PeerID     string `json:"peer_id"`
	Text       string `json:"text"`
	SenderName string `json:"sender_name"`
}

// fallbackSenderName is used when both sender name spellings are absent.
const fallbackSenderName = "Unknown"

// parseMessage normalizes a receive_message payload. A payload missing
// text or a conversation id is malformed and rejected whole.
func parseMessage(raw json.RawMessage) (*convo.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return normalizeMessage(w, "")
}

// parseHistory normalizes a conversation_history payload. Individual
// entries missing text are skipped; an entry without an id gets a
// session-local placeholder so the dedup invariant holds against live
// redelivery of the same entry.
func parseHistory(raw json.RawMessage) (*convo.History, int, error) {
	var w wireHistory
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, 0, fmt.Errorf("decode history: %w", err)
	}
	convID := firstNonEmpty(w.ConversationID, w.ConversationIDAlt)
	if convID == "" {
		return nil, 0, fmt.Errorf("history missing conversation id")
	}

	dropped := 0
	msgs := make([]*convo.Message, 0, len(w.Messages))
	for _, wm := range w.Messages {
		m, err := normalizeMessage(wm, convID)
		if err != nil {
			dropped++
			continue
		}
		msgs = append(msgs, m)
	}
	return &convo.History{ConversationID: convID, Messages: msgs}, dropped, nil
}

func normalizeMessage(w wireMessage, convID string) (*convo.Message, error) {
	if convID == "" {
		convID = firstNonEmpty(w.ConversationID, w.ConversationIDAlt)
	}
	if convID == "" {
		return nil, fmt.Errorf("message missing conversation id")
	}
	if w.Text == "" {
		return nil, fmt.Errorf("message missing text")
	}

	id := w.ID
	if id == "" {
		// Placeholder id, stable only for this session.
		id = "local-" + uuid.New().String()
	}

	name := firstNonEmpty(w.SenderName, w.SenderNameAlt)
	if name == "" {
		name = fallbackSenderName
	}

	return &convo.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       firstNonEmpty(w.SenderID, w.SenderIDAlt),
		SenderName:     name,
		Text:           w.Text,
		Timestamp:      parseTimestamp(w.Timestamp),
	}, nil
}

// timestampLayouts covers RFC3339 and the gateway's zone-less isoformat.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp parses a wire timestamp, defaulting to receipt time.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// marshalData encodes an outbound payload for the frame envelope.
func marshalData(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
