package transport

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseMessageSnakeCase(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "m1",
		"conversation_id": "u1-u2",
		"sender_id": "u2",
		"sender_name": "Alice",
		"text": "hello",
		"timestamp": "2026-08-30T14:05:00.123456"
	}`)

	m, err := parseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "m1" || m.ConversationID != "u1-u2" || m.SenderID != "u2" {
		t.Errorf("normalized = %+v", m)
	}
	if m.SenderName != "Alice" || m.Text != "hello" {
		t.Errorf("normalized = %+v", m)
	}
	want := time.Date(2026, 8, 30, 14, 5, 0, 123456000, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", m.Timestamp, want)
	}
}

func TestParseMessageCamelCaseFallback(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "m1",
		"conversationId": "u1-u2",
		"senderId": "u2",
		"senderName": "Alice",
		"text": "hello",
		"timestamp": "2026-08-30T14:05:00Z"
	}`)

	m, err := parseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.ConversationID != "u1-u2" || m.SenderID != "u2" || m.SenderName != "Alice" {
		t.Errorf("camelCase fields not normalized: %+v", m)
	}
}

func TestParseMessageSnakeCaseWins(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "m1",
		"conversation_id": "snake",
		"conversationId": "camel",
		"text": "hello"
	}`)

	m, err := parseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.ConversationID != "snake" {
		t.Errorf("conversation id = %q, want snake_case to win", m.ConversationID)
	}
}

func TestParseMessageSenderNameFallback(t *testing.T) {
	raw := json.RawMessage(`{"id": "m1", "conversation_id": "u1-u2", "text": "hi"}`)

	m, err := parseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.SenderName != "Unknown" {
		t.Errorf("sender name = %q, want Unknown", m.SenderName)
	}
}

func TestParseMessageMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing text", `{"id": "m1", "conversation_id": "u1-u2"}`},
		{"missing conversation id", `{"id": "m1", "text": "hi"}`},
		{"not json", `[1,2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseMessage(json.RawMessage(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseMessageBadTimestampDefaults(t *testing.T) {
	raw := json.RawMessage(`{"id": "m1", "conversation_id": "u1-u2", "text": "hi", "timestamp": "yesterday"}`)

	before := time.Now().UTC()
	m, err := parseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if m.Timestamp.Before(before.Add(-time.Second)) {
		t.Errorf("unparseable timestamp = %v, want receipt time", m.Timestamp)
	}
}

func TestParseHistory(t *testing.T) {
	raw := json.RawMessage(`{
		"conversation_id": "u1-u2",
		"messages": [
			{"id": "m1", "sender_id": "u2", "sender_name": "Alice", "text": "one", "timestamp": "2026-08-30T10:00:00"},
			{"id": "m2", "sender_id": "u1", "sender_name": "Me", "text": "two", "timestamp": "2026-08-30T10:01:00"}
		]
	}`)

	hist, dropped, err := parseHistory(raw)
	if err != nil {
		t.Fatal(err)
	}
	if hist.ConversationID != "u1-u2" {
		t.Errorf("conversation id = %q", hist.ConversationID)
	}
	if len(hist.Messages) != 2 || dropped != 0 {
		t.Fatalf("got %d messages (%d dropped), want 2 (0 dropped)", len(hist.Messages), dropped)
	}
	// Entries inherit the envelope conversation id.
	if hist.Messages[0].ConversationID != "u1-u2" {
		t.Errorf("entry conversation id = %q", hist.Messages[0].ConversationID)
	}
}

func TestParseHistorySkipsBadEntries(t *testing.T) {
	raw := json.RawMessage(`{
		"conversation_id": "u1-u2",
		"messages": [
			{"id": "m1", "text": "good"},
			{"id": "m2"}
		]
	}`)

	hist, dropped, err := parseHistory(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Messages) != 1 || dropped != 1 {
		t.Errorf("got %d messages (%d dropped), want 1 (1 dropped)", len(hist.Messages), dropped)
	}
}

func TestParseHistorySynthesizesIDs(t *testing.T) {
	raw := json.RawMessage(`{
		"conversation_id": "u1-u2",
		"messages": [{"text": "no id"}]
	}`)

	hist, _, err := parseHistory(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist.Messages) != 1 {
		t.Fatal("entry dropped")
	}
	if !strings.HasPrefix(hist.Messages[0].ID, "local-") {
		t.Errorf("id = %q, want local- placeholder", hist.Messages[0].ID)
	}
}

func TestParseHistoryMissingConversationID(t *testing.T) {
	raw := json.RawMessage(`{"messages": []}`)
	if _, _, err := parseHistory(raw); err == nil {
		t.Error("expected error for missing conversation id")
	}
}
