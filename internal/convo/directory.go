package convo

import (
	"sort"
	"sync"
	"time"
)

// Directory owns the conversation summaries for the user's known peers
// (connections plus pending connection requests). The sync engine is its
// only writer. Summaries are matched against incoming conversation ids by
// deriving PairKey(self, peer) for each peer, so the directory needs the
// self id at construction.
type Directory struct {
	mu     sync.RWMutex
	selfID string
	peers  map[string]*Summary
}

// NewDirectory creates an empty directory for the given self id.
func NewDirectory(selfID string) *Directory {
	return &Directory{
		selfID: selfID,
		peers:  make(map[string]*Summary),
	}
}

// UpsertPeers merges a freshly fetched peer list into the directory.
// Already-tracked preview fields (last message, time, unread count) are
// preserved for known peers; only the profile is refreshed. Callers pass
// connections before pending requests: the first profile seen for an id
// wins, so request entries only fill gaps.
func (d *Directory) UpsertPeers(peers []Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]struct{}, len(peers))
	for _, p := range peers {
		if p.ID == "" {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		if existing, ok := d.peers[p.ID]; ok {
			existing.Peer = p
			continue
		}
		d.peers[p.ID] = &Summary{Peer: p}
	}
}

// RecordIncoming updates the preview for the summary whose conversation
// id with self matches conversationID, and bumps the unread counter when
// the conversation is not the active one. Unknown conversation ids are
// no-ops: the message is still held by the message store, only directory
// bookkeeping is skipped.
func (d *Directory) RecordIncoming(conversationID string, msg *Message, isActive bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.lookup(conversationID)
	if s == nil {
		return
	}
	s.LastMessage = msg.Text
	s.LastMessageTime = msg.Timestamp
	if !isActive {
		s.UnreadCount++
	}
}

// UpdatePreview refreshes the last-message fields for the matching
// conversation without touching the unread counter. Used when a history
// load supplies the latest message.
func (d *Directory) UpdatePreview(conversationID, text string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.lookup(conversationID)
	if s == nil {
		return
	}
	s.LastMessage = text
	s.LastMessageTime = at
}

// ClearUnread resets the unread counter for a peer. Unknown peers are no-ops.
func (d *Directory) ClearUnread(peerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.peers[peerID]; ok {
		s.UnreadCount = 0
	}
}

// Get returns a copy of one peer's summary, or nil if unknown.
func (d *Directory) Get(peerID string) *Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.peers[peerID]
	if !ok {
		return nil
	}
	out := *s
	return &out
}

// List returns summary copies ordered by last activity, most recent
// first; peers with no messages yet sort after those with activity, by name.
func (d *Directory) List() []Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Summary, 0, len(d.peers))
	for _, s := range d.peers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessageTime, out[j].LastMessageTime
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].Peer.Name < out[j].Peer.Name
	})
	return out
}

// PeerFor returns the peer profile whose conversation id with self
// matches conversationID.
func (d *Directory) PeerFor(conversationID string) (Peer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if s := d.lookup(conversationID); s != nil {
		return s.Peer, true
	}
	return Peer{}, false
}

// lookup finds the summary matching a conversation id. Caller holds d.mu.
func (d *Directory) lookup(conversationID string) *Summary {
	for id, s := range d.peers {
		if PairKey(d.selfID, id) == conversationID {
			return s
		}
	}
	return nil
}
