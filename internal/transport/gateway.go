package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/csh-platform/hubchat/internal/bus"
	"github.com/csh-platform/hubchat/internal/status"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Gateway maintains the websocket connection to the platform's realtime
// gateway. It dials, announces presence with a register frame once per
// connection establishment, decodes inbound frames through the event
// handler, and reconnects with backoff when the connection drops.
type Gateway struct {
	url     string
	selfID  string
	machine *status.Machine
	handler *EventHandler
	bus     *bus.Bus
	logger  *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewGateway creates a gateway client for the given user.
func NewGateway(url, selfID string, machine *status.Machine, handler *EventHandler, b *bus.Bus, logger *zap.Logger) *Gateway {
	return &Gateway{
		url:     url,
		selfID:  selfID,
		machine: machine,
		handler: handler,
		bus:     b,
		logger:  logger,
	}
}

// Start runs the connect/read/reconnect loop until the context is
// cancelled or Stop is called.
func (g *Gateway) Start(ctx context.Context) {
	ctx, g.cancel = context.WithCancel(ctx)
	go g.run(ctx)
}

// Stop terminates the gateway connection and the reconnect loop.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.mu.Lock()
	if g.conn != nil {
		_ = g.conn.Close()
		g.conn = nil
	}
	g.mu.Unlock()
}

// Connected reports whether a live connection is established.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// LoadConversation requests the message history for the pair (self, peer).
func (g *Gateway) LoadConversation(peerID string) error {
	return g.emit(EventLoadConversation, loadConversationPayload{
		SelfID: g.selfID,
		PeerID: peerID,
	})
}

// SendMessage emits a direct message to a peer. The gateway echoes the
// stored message back through receive_message; that echo is the commit
// signal, so nothing is written locally here.
func (g *Gateway) SendMessage(peerID, text, senderName string) error {
	return g.emit(EventSendMessage, sendMessagePayload{
		SelfID:     g.selfID,
		PeerID:     peerID,
		Text:       text,
		SenderName: senderName,
	})
}

func (g *Gateway) emit(event string, data any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		return fmt.Errorf("emit %s: not connected", event)
	}
	_ = g.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := g.conn.WriteJSON(frame{Event: event, Data: marshalData(data)}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (g *Gateway) run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}
		_ = g.machine.Transition(status.Connecting)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
		if err != nil {
			g.logger.Warn("gateway dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		g.mu.Lock()
		g.conn = conn
		g.mu.Unlock()

		_ = g.machine.Transition(status.Registering)
		if err := g.emit(EventRegister, registerPayload{SelfID: g.selfID}); err != nil {
			g.logger.Error("register failed", zap.Error(err))
			g.dropConn(conn)
			continue
		}
		_ = g.machine.Transition(status.Ready)
		g.logger.Info("gateway connected", zap.String("url", g.url))
		g.bus.Emit(bus.KindNetConnected, nil)

		g.readLoop(ctx, conn)

		g.dropConn(conn)
		g.bus.Emit(bus.KindNetDisconnected, nil)
		_ = g.machine.Transition(status.Reconnecting)
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("gateway connection lost", zap.Error(err))
			}
			return
		}
		g.handler.Handle(f.Event, f.Data)
	}
}

func (g *Gateway) dropConn(conn *websocket.Conn) {
	_ = conn.Close()
	g.mu.Lock()
	if g.conn == conn {
		g.conn = nil
	}
	g.mu.Unlock()
}
