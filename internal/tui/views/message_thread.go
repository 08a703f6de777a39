package views

import (
	"fmt"
	"time"

	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/rivo/tview"
)

// MessageThread displays the ordered messages of one conversation.
// History loads re-render the whole thread; live messages for the active
// conversation append in place.
type MessageThread struct {
	*tview.TextView
	selfID   string
	peerName string
}

// NewMessageThread creates a thread view for the given self id.
func NewMessageThread(selfID string) *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &MessageThread{TextView: tv, selfID: selfID}
}

// SetPeerName updates the title with the peer's name.
func (mt *MessageThread) SetPeerName(name string) {
	mt.peerName = name
	mt.SetTitle(fmt.Sprintf(" %s ", name))
}

// Update re-renders the full thread, oldest first.
func (mt *MessageThread) Update(msgs []*convo.Message) {
	mt.Clear()
	for _, m := range msgs {
		mt.writeMessage(m)
	}
	mt.ScrollToEnd()
}

// Append renders a single new message at the end of the thread.
func (mt *MessageThread) Append(m *convo.Message) {
	mt.writeMessage(m)
	mt.ScrollToEnd()
}

func (mt *MessageThread) writeMessage(m *convo.Message) {
	sender := m.SenderName
	if m.SenderID == mt.selfID {
		sender = "You"
	}
	ts := formatMessageTime(m.Timestamp)
	_, _ = fmt.Fprintf(mt, "[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n", tview.Escape(sender), ts, tview.Escape(m.Text))
}

func formatMessageTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02 15:04")
}
