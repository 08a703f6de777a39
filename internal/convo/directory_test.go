package convo

import (
	"testing"
	"time"
)

func TestUpsertPeersConnectionWins(t *testing.T) {
	d := NewDirectory("u1")

	// Connections come before requests; the first profile per id wins.
	d.UpsertPeers([]Peer{
		{ID: "u2", Name: "Alice", Role: "mentor"},
		{ID: "u2", Name: "alice-from-request"},
		{ID: "u3", Name: "Bob"},
	})

	s := d.Get("u2")
	if s == nil {
		t.Fatal("u2 not in directory")
	}
	if s.Peer.Name != "Alice" || s.Peer.Role != "mentor" {
		t.Errorf("profile = %+v, want the connection entry", s.Peer)
	}
	if len(d.List()) != 2 {
		t.Errorf("got %d peers, want 2", len(d.List()))
	}
}

func TestUpsertPeersPreservesPreview(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice"}})

	ts := time.Now()
	d.RecordIncoming("u1-u2", &Message{ID: "m1", Text: "hi", Timestamp: ts}, false)

	// A refresh must not wipe the unread counter or preview.
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice Updated"}})

	s := d.Get("u2")
	if s.Peer.Name != "Alice Updated" {
		t.Errorf("name = %q, want refreshed profile", s.Peer.Name)
	}
	if s.UnreadCount != 1 || s.LastMessage != "hi" {
		t.Errorf("preview lost on refresh: %+v", s)
	}
}

func TestRecordIncomingUnread(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice"}})

	for i := 0; i < 3; i++ {
		d.RecordIncoming("u1-u2", &Message{ID: "m", Text: "ping", Timestamp: time.Now()}, false)
	}
	if got := d.Get("u2").UnreadCount; got != 3 {
		t.Errorf("unread = %d, want 3", got)
	}

	d.ClearUnread("u2")
	if got := d.Get("u2").UnreadCount; got != 0 {
		t.Errorf("unread after clear = %d, want 0", got)
	}
}

func TestRecordIncomingActiveDoesNotCount(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice"}})

	d.RecordIncoming("u1-u2", &Message{ID: "m1", Text: "hi", Timestamp: time.Now()}, true)

	s := d.Get("u2")
	if s.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0 for active conversation", s.UnreadCount)
	}
	if s.LastMessage != "hi" {
		t.Errorf("preview = %q, want updated even when active", s.LastMessage)
	}
}

func TestRecordIncomingUnknownPeer(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice"}})

	// Conversation id that matches no known peer is a no-op.
	d.RecordIncoming("u1-u9", &Message{ID: "m1", Text: "hi", Timestamp: time.Now()}, false)

	if got := d.Get("u2").UnreadCount; got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestListOrdering(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{
		{ID: "u2", Name: "Alice"},
		{ID: "u3", Name: "Bob"},
		{ID: "u4", Name: "Carol"},
	})

	base := time.Now()
	d.RecordIncoming("u1-u3", &Message{ID: "m1", Text: "old", Timestamp: base.Add(-time.Hour)}, false)
	d.RecordIncoming("u1-u2", &Message{ID: "m2", Text: "new", Timestamp: base}, false)

	got := d.List()
	if len(got) != 3 {
		t.Fatalf("got %d summaries, want 3", len(got))
	}
	if got[0].Peer.ID != "u2" || got[1].Peer.ID != "u3" {
		t.Errorf("order = [%s %s %s], want most recent first", got[0].Peer.ID, got[1].Peer.ID, got[2].Peer.ID)
	}
	// No-activity peer sorts last.
	if got[2].Peer.ID != "u4" {
		t.Errorf("last = %s, want u4", got[2].Peer.ID)
	}
}

func TestPeerFor(t *testing.T) {
	d := NewDirectory("u1")
	d.UpsertPeers([]Peer{{ID: "u2", Name: "Alice"}})

	p, ok := d.PeerFor("u1-u2")
	if !ok || p.ID != "u2" {
		t.Errorf("PeerFor = (%+v, %v), want u2", p, ok)
	}
	if _, ok := d.PeerFor("u1-u9"); ok {
		t.Error("PeerFor matched unknown conversation")
	}
}
