package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/csh-platform/hubchat/internal/bus"
	"github.com/csh-platform/hubchat/internal/convo"
	"go.uber.org/zap"
)

func TestHandleReceiveMessage(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, zap.NewNop())

	ch, unsub := b.Subscribe("net.message", 10)
	defer unsub()

	h.Handle(EventReceiveMessage, json.RawMessage(`{
		"id": "m1", "conversation_id": "u1-u2", "sender_id": "u2",
		"sender_name": "Alice", "text": "hello"
	}`))

	select {
	case evt := <-ch:
		msg, ok := evt.Payload.(*convo.Message)
		if !ok {
			t.Fatalf("payload type %T, want *convo.Message", evt.Payload)
		}
		if msg.ID != "m1" || msg.Text != "hello" {
			t.Errorf("payload = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for net.message event")
	}
}

func TestHandleMalformedMessageDropped(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, zap.NewNop())

	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	h.Handle(EventReceiveMessage, json.RawMessage(`{"id": "m1"}`))

	select {
	case evt := <-ch:
		t.Errorf("unexpected event for malformed payload: %v", evt.Kind)
	case <-time.After(50 * time.Millisecond):
		// Expected: dropped whole.
	}
}

func TestHandleConversationHistory(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, zap.NewNop())

	ch, unsub := b.Subscribe("net.history", 10)
	defer unsub()

	h.Handle(EventConversationHistory, json.RawMessage(`{
		"conversation_id": "u1-u2",
		"messages": [{"id": "m1", "text": "one"}, {"id": "m2", "text": "two"}]
	}`))

	select {
	case evt := <-ch:
		hist, ok := evt.Payload.(*convo.History)
		if !ok {
			t.Fatalf("payload type %T, want *convo.History", evt.Payload)
		}
		if hist.ConversationID != "u1-u2" || len(hist.Messages) != 2 {
			t.Errorf("payload = %+v", hist)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for net.history event")
	}
}

func TestHandleGatewayError(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, zap.NewNop())

	ch, unsub := b.Subscribe("net.error", 10)
	defer unsub()

	h.Handle(EventError, json.RawMessage(`{"msg": "User not registered"}`))

	select {
	case evt := <-ch:
		if evt.Payload.(string) != "User not registered" {
			t.Errorf("payload = %v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for net.error event")
	}
}

func TestHandleUnknownEventIgnored(t *testing.T) {
	b := bus.New()
	h := NewEventHandler(b, zap.NewNop())

	ch, unsub := b.Subscribe("net.", 10)
	defer unsub()

	h.Handle("typing_indicator", json.RawMessage(`{}`))

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
