package convo

import "sync"

// ActiveTracker holds the peer id of the conversation currently focused
// in the UI, or empty when none is. The sync engine compares incoming
// conversation ids against PairKey(self, Active()) to decide between
// live rendering and badge updates.
type ActiveTracker struct {
	mu     sync.RWMutex
	peerID string
}

// NewActiveTracker creates a tracker with no active conversation.
func NewActiveTracker() *ActiveTracker {
	return &ActiveTracker{}
}

// SetActive records peerID as the focused conversation. Empty clears it.
func (t *ActiveTracker) SetActive(peerID string) {
	t.mu.Lock()
	t.peerID = peerID
	t.mu.Unlock()
}

// Active returns the focused peer id, or empty.
func (t *ActiveTracker) Active() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.peerID
}
