package views

import (
	"fmt"
	"time"

	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/rivo/tview"
)

// ConversationList is the sidebar table of conversation summaries.
type ConversationList struct {
	*tview.Table
	summaries  []convo.Summary
	selectedFn func() (int, int)
}

// NewConversationList creates a new conversation list table.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Conversations ")

	cl := &ConversationList{Table: table}
	cl.selectedFn = table.GetSelection
	return cl
}

// Update refreshes the list with new summaries.
func (cl *ConversationList) Update(summaries []convo.Summary) {
	cl.summaries = summaries
	cl.Clear()

	// Header row.
	cl.SetCell(0, 0, tview.NewTableCell(" Name").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, s := range summaries {
		row := i + 1
		name := s.Peer.Name
		if name == "" {
			name = s.Peer.ID
		}
		if s.UnreadCount > 0 {
			name = fmt.Sprintf("* %s (%d)", name, s.UnreadCount)
		}
		preview := s.LastMessage
		if preview == "" {
			preview = "No messages yet"
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetMaxWidth(30).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(preview)).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTime(s.LastMessageTime)).SetMaxWidth(12))
	}
}

// SelectedPeer returns the peer id of the currently selected row.
func (cl *ConversationList) SelectedPeer() string {
	row, _ := cl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.summaries) {
		return cl.summaries[idx].Peer.ID
	}
	return ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
