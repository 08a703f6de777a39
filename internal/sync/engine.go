package sync

import (
	"context"
	"strings"
	gosync "sync"
	"time"

	"github.com/csh-platform/hubchat/internal/archive"
	"github.com/csh-platform/hubchat/internal/bus"
	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/csh-platform/hubchat/internal/session"
	"go.uber.org/zap"
)

// Gateway is the transport surface the engine drives.
type Gateway interface {
	Connected() bool
	LoadConversation(peerID string) error
	SendMessage(peerID, text, senderName string) error
}

// Engine reconciles the local conversation view against the gateway's
// event stream. It is the single writer to the message store and the
// directory: transport events arrive through the bus, local intents
// through Open and Send, and a mutex serializes both paths so handler
// ordering is preserved.
type Engine struct {
	self    *session.Identity
	store   *convo.MessageStore
	dir     *convo.Directory
	active  *convo.ActiveTracker
	gateway Gateway
	archive *archive.DB // optional write-through cache
	bus     *bus.Bus
	logger  *zap.Logger
	cancel  context.CancelFunc

	mu gosync.Mutex
	// pendingLoads holds history requests deferred while disconnected,
	// keyed by conversation id. Each is flushed at most once on the next
	// net.connected event.
	pendingLoads map[string]string
}

// NewEngine creates a sync engine for the given identity. archiveDB may
// be nil to disable write-through archiving.
func NewEngine(self *session.Identity, store *convo.MessageStore, dir *convo.Directory, active *convo.ActiveTracker, gw Gateway, archiveDB *archive.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		self:         self,
		store:        store,
		dir:          dir,
		active:       active,
		gateway:      gw,
		archive:      archiveDB,
		bus:          b,
		logger:       logger,
		pendingLoads: make(map[string]string),
	}
}

// Start subscribes to inbound gateway events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("net.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

// SeedPeers merges a fetched peer list into the directory. Connections
// come before pending requests in the slice, so connection profiles win
// on duplicate ids.
func (e *Engine) SeedPeers(peers []convo.Peer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dir.UpsertPeers(peers)
	e.publishDirectory()
}

// Open focuses a conversation: marks it active, clears its unread badge,
// and surfaces its history. The first open of a pair issues exactly one
// load_conversation request; later opens serve the cached sequence. An
// open while disconnected defers the request until the gateway connects.
func (e *Engine) Open(peerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.active.SetActive(peerID)
	e.dir.ClearUnread(peerID)
	e.publishDirectory()

	convID := convo.PairKey(e.self.UserID, peerID)
	switch e.store.State(convID) {
	case convo.Loaded:
		e.bus.Emit(bus.KindViewHistoryLoaded, &convo.History{
			ConversationID: convID,
			Messages:       e.store.Get(convID),
		})
		return
	case convo.Loading:
		// Request already in flight; its resolution will surface here
		// if this conversation is still active then.
		return
	}

	e.store.MarkLoading(convID)
	e.requestHistory(convID, peerID)
}

// Close clears the active conversation (user navigated away).
func (e *Engine) Close() {
	e.active.SetActive("")
}

// Send emits a direct message. Empty or whitespace-only text and a
// disconnected gateway are rejected. The message is NOT appended locally:
// the gateway echoes every stored message back to its sender through
// receive_message, and that echo is the sole commit signal — which also
// dedups the echo against any further rebroadcast.
func (e *Engine) Send(peerID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !e.gateway.Connected() {
		return ErrNotConnected
	}
	return e.gateway.SendMessage(peerID, text, e.self.DisplayName)
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindNetMessage:
		msg, ok := evt.Payload.(*convo.Message)
		if !ok {
			return
		}
		e.handleMessage(msg)
	case bus.KindNetHistory:
		hist, ok := evt.Payload.(*convo.History)
		if !ok {
			return
		}
		e.handleHistory(hist)
	case bus.KindNetConnected:
		e.flushPending()
	}
}

// handleMessage ingests one live message. Duplicates (send echoes seen
// twice, gateway retransmissions) are suppressed by id and cause no
// directory update and no render.
func (e *Engine) handleMessage(msg *convo.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.store.AppendIfNew(msg.ConversationID, msg) {
		e.logger.Debug("duplicate message suppressed",
			zap.String("msg_id", msg.ID),
			zap.String("conversation_id", msg.ConversationID))
		return
	}

	isActive := e.isActiveConversation(msg.ConversationID)
	e.archiveMessage(msg, isActive)

	if isActive {
		// Render in place; the focused conversation never counts unread.
		e.dir.UpdatePreview(msg.ConversationID, msg.Text, msg.Timestamp)
		e.bus.Emit(bus.KindViewMessageAppended, msg)
	} else {
		e.dir.RecordIncoming(msg.ConversationID, msg, false)
	}
	e.publishDirectory()
}

// handleHistory applies a history load. The store merges by id, so live
// messages that raced the response survive. The sequence is surfaced to
// the view only if the conversation is still the active one.
func (e *Engine) handleHistory(hist *convo.History) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.ReplaceHistory(hist.ConversationID, hist.Messages)
	merged := e.store.Get(hist.ConversationID)
	e.archiveHistory(hist.ConversationID, merged)

	if len(merged) > 0 {
		last := merged[len(merged)-1]
		e.dir.UpdatePreview(hist.ConversationID, last.Text, last.Timestamp)
	}

	if activePeer := e.active.Active(); activePeer != "" &&
		convo.PairKey(e.self.UserID, activePeer) == hist.ConversationID {
		// Messages may have arrived between open() and now; the user is
		// looking at them, so the badge resets again.
		e.dir.ClearUnread(activePeer)
		e.bus.Emit(bus.KindViewHistoryLoaded, &convo.History{
			ConversationID: hist.ConversationID,
			Messages:       merged,
		})
	}
	e.publishDirectory()
}

// requestHistory emits a load_conversation, or defers it until the next
// connect when the gateway is down. Caller holds e.mu.
func (e *Engine) requestHistory(convID, peerID string) {
	if e.gateway.Connected() {
		err := e.gateway.LoadConversation(peerID)
		if err == nil {
			return
		}
		e.logger.Warn("history request failed, deferring until reconnect",
			zap.String("conversation_id", convID), zap.Error(err))
	}
	e.pendingLoads[convID] = peerID
}

// flushPending emits deferred history requests after a connect. Each
// deferred intent is emitted at most once; a failed emission is re-deferred
// since nothing went out.
func (e *Engine) flushPending() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for convID, peerID := range e.pendingLoads {
		delete(e.pendingLoads, convID)
		if err := e.gateway.LoadConversation(peerID); err != nil {
			e.logger.Warn("deferred history request failed",
				zap.String("conversation_id", convID), zap.Error(err))
			e.pendingLoads[convID] = peerID
		}
	}
}

func (e *Engine) isActiveConversation(convID string) bool {
	activePeer := e.active.Active()
	return activePeer != "" && convo.PairKey(e.self.UserID, activePeer) == convID
}

func (e *Engine) publishDirectory() {
	e.bus.Emit(bus.KindViewDirectoryUpdated, e.dir.List())
}

func (e *Engine) archiveMessage(msg *convo.Message, isActive bool) {
	if e.archive == nil {
		return
	}
	if err := e.archive.UpsertMessage(&archive.Message{
		ConversationID: msg.ConversationID,
		MsgID:          msg.ID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Text:           msg.Text,
		Timestamp:      msg.Timestamp.UnixMilli(),
	}); err != nil {
		e.logger.Warn("archive message failed", zap.Error(err))
	}
	e.archiveConversation(msg.ConversationID, msg.Text, msg.Timestamp)
}

func (e *Engine) archiveHistory(convID string, msgs []*convo.Message) {
	if e.archive == nil {
		return
	}
	batch := make([]*archive.Message, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, &archive.Message{
			ConversationID: m.ConversationID,
			MsgID:          m.ID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			Text:           m.Text,
			Timestamp:      m.Timestamp.UnixMilli(),
		})
	}
	if err := e.archive.UpsertMessages(batch); err != nil {
		e.logger.Warn("archive history failed",
			zap.String("conversation_id", convID), zap.Error(err))
	}
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		e.archiveConversation(convID, last.Text, last.Timestamp)
	}
}

func (e *Engine) archiveConversation(convID, preview string, at time.Time) {
	c := &archive.Conversation{
		ID:                 convID,
		LastMessageAt:      at.UnixMilli(),
		LastMessagePreview: truncate(preview, 100),
	}
	if peer, ok := e.dir.PeerFor(convID); ok {
		c.PeerID = peer.ID
		c.PeerName = peer.Name
		if s := e.dir.Get(peer.ID); s != nil {
			c.UnreadCount = s.UnreadCount
		}
	}
	if err := e.archive.UpsertConversation(c); err != nil {
		e.logger.Warn("archive conversation failed",
			zap.String("conversation_id", convID), zap.Error(err))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
