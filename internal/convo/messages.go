package convo

import "sync"

// MessageStore owns the conversation id → ordered message list mapping.
// The sync engine is its only writer; views read snapshots. Order is
// append order — the gateway sends each conversation's messages in
// monotonic order, so no client-side re-sorting is done.
type MessageStore struct {
	mu     sync.RWMutex
	byConv map[string][]*Message
	states map[string]LoadState
}

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		byConv: make(map[string][]*Message),
		states: make(map[string]LoadState),
	}
}

// AppendIfNew appends msg to its conversation unless a message with the
// same id is already stored. Returns true if the message was inserted.
// This suppresses both the echo of a just-sent message and gateway
// retransmissions.
func (s *MessageStore) AppendIfNew(conversationID string, msg *Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.byConv[conversationID] {
		if m.ID == msg.ID {
			return false
		}
	}
	s.byConv[conversationID] = append(s.byConv[conversationID], msg)
	return true
}

// ReplaceHistory applies a history load for a conversation and marks it
// Loaded. The loaded sequence becomes the base; any previously stored
// messages whose ids are absent from it (live events that raced the
// history response) are re-appended after it in their original order, so
// a live message arriving before the load resolves is never dropped.
func (s *MessageStore) ReplaceHistory(conversationID string, msgs []*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(msgs))
	merged := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range s.byConv[conversationID] {
		if _, ok := seen[m.ID]; !ok {
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}

	s.byConv[conversationID] = merged
	s.states[conversationID] = Loaded
}

// Get returns a snapshot of a conversation's ordered messages.
// Absent conversations behave as empty.
func (s *MessageStore) Get(conversationID string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.byConv[conversationID]
	out := make([]*Message, len(msgs))
	copy(out, msgs)
	return out
}

// State returns the load state for a conversation.
func (s *MessageStore) State(conversationID string) LoadState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[conversationID]
}

// MarkLoading transitions a conversation to Loading. Returns false if the
// conversation is already Loading or Loaded, in which case no new history
// request should be issued.
func (s *MessageStore) MarkLoading(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.states[conversationID] != Unloaded {
		return false
	}
	s.states[conversationID] = Loading
	return true
}
