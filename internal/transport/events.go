package transport

import (
	"encoding/json"
	"time"

	"github.com/csh-platform/hubchat/internal/bus"
	"go.uber.org/zap"
)

// EventHandler turns decoded gateway frames into bus events. It does NOT
// call the sync engine directly — the engine subscribes to the bus
// independently. Malformed frames are dropped whole with a diagnostic,
// never partially applied.
type EventHandler struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(b *bus.Bus, logger *zap.Logger) *EventHandler {
	return &EventHandler{bus: b, logger: logger}
}

// Handle dispatches one inbound frame.
func (h *EventHandler) Handle(event string, data json.RawMessage) {
	switch event {
	case EventReceiveMessage:
		msg, err := parseMessage(data)
		if err != nil {
			h.logger.Warn("dropping malformed message event", zap.Error(err))
			return
		}
		h.bus.Publish(bus.Event{
			Kind:      bus.KindNetMessage,
			Timestamp: time.Now(),
			Payload:   msg,
		})

	case EventConversationHistory:
		hist, dropped, err := parseHistory(data)
		if err != nil {
			h.logger.Warn("dropping malformed history event", zap.Error(err))
			return
		}
		if dropped > 0 {
			h.logger.Warn("history contained malformed entries",
				zap.String("conversation_id", hist.ConversationID),
				zap.Int("dropped", dropped))
		}
		h.bus.Publish(bus.Event{
			Kind:      bus.KindNetHistory,
			Timestamp: time.Now(),
			Payload:   hist,
		})

	case EventError:
		var payload struct {
			Msg string `json:"msg"`
		}
		_ = json.Unmarshal(data, &payload)
		h.logger.Warn("gateway reported error", zap.String("msg", payload.Msg))
		h.bus.Publish(bus.Event{
			Kind:      bus.KindNetError,
			Timestamp: time.Now(),
			Payload:   payload.Msg,
		})

	default:
		h.logger.Debug("ignoring unknown gateway event", zap.String("event", event))
	}
}
