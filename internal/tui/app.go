package tui

import (
	"context"
	"time"

	"github.com/csh-platform/hubchat/internal/archive"
	"github.com/csh-platform/hubchat/internal/bus"
	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/csh-platform/hubchat/internal/session"
	"github.com/csh-platform/hubchat/internal/status"
	"github.com/csh-platform/hubchat/internal/sync"
	"github.com/csh-platform/hubchat/internal/tui/keys"
	"github.com/csh-platform/hubchat/internal/tui/model"
	"github.com/csh-platform/hubchat/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// App is the main TUI application shell. It renders what the sync engine
// publishes on the bus and forwards user intents (open, send, search)
// back to the engine.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	engine   *sync.Engine
	archive  *archive.DB
	bus      *bus.Bus
	registry *keys.Registry
	flash    *model.Flash

	statusBar *views.StatusBar
	convList  *views.ConversationList
	thread    *views.MessageThread
	composer  *views.Composer
	searchV   *views.SearchView

	selfID     string
	activePeer string
	summaries  []convo.Summary

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(engine *sync.Engine, archiveDB *archive.DB, b *bus.Bus, self *session.Identity, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		engine:    engine,
		archive:   archiveDB,
		bus:       b,
		registry:  keys.NewRegistry(),
		flash:     &model.Flash{},
		statusBar: views.NewStatusBar(),
		convList:  views.NewConversationList(),
		thread:    views.NewMessageThread(self.UserID),
		composer:  views.NewComposer(),
		searchV:   views.NewSearchView(),
		selfID:    self.UserID,
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.statusBar.SetStatus(string(status.Booting))
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.app.Stop() },
	})
	a.registry.AddGlobal("search", &keys.Action{
		Rune: 's', Key: tcell.KeyRune,
		Description: "s:search", Visible: true,
		Handler: func() { a.showSearch() },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		peerID := a.convList.SelectedPeer()
		if peerID != "" {
			a.openConversation(peerID)
		}
	})

	a.composer.SetOnSend(func(text string) {
		peerID := a.activePeer
		if peerID == "" {
			return
		}
		if err := a.engine.Send(peerID, text); err != nil {
			a.flash.Set("Send failed: "+err.Error(), 5*time.Second)
			a.statusBar.SetFlash(a.flash.Get())
		}
		// The gateway echo commits the message; nothing to render yet.
	})

	a.searchV.SetOnQuery(func(query string) {
		if a.archive == nil || query == "" {
			return
		}
		go func() {
			results, err := a.archive.SearchMessages(query, "", 50)
			if err != nil {
				a.flash.Set("Search failed: "+err.Error(), 5*time.Second)
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchV.Update(results)
				a.app.SetFocus(a.searchV.Results())
			})
		}()
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("conversations", a.convList, true, true)
	a.pages.AddPage("chat", chatFlex, true, false)
	a.pages.AddPage("search", a.searchV, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "chat", "search":
				a.engine.Close()
				a.activePeer = ""
				a.convList.Update(a.summaries)
				a.pages.SwitchToPage("conversations")
				a.app.SetFocus(a.convList)
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == "chat" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

// openConversation focuses a peer's conversation. The engine answers with
// a view.history_loaded event once the sequence is available, which may be
// immediately for cached conversations.
func (a *App) openConversation(peerID string) {
	a.activePeer = peerID

	name := peerID
	for _, s := range a.summaries {
		if s.Peer.ID == peerID {
			if s.Peer.Name != "" {
				name = s.Peer.Name
			}
			break
		}
	}
	a.thread.SetPeerName(name)
	a.thread.Update(nil)
	a.pages.SwitchToPage("chat")
	a.app.SetFocus(a.composer.InputField)

	a.engine.Open(peerID)
}

func (a *App) showSearch() {
	a.pages.SwitchToPage("search")
	a.app.SetFocus(a.searchV.Input())
}

// Run starts the event loop and blocks until the application exits.
func (a *App) Run() error {
	a.startEventLoop()
	a.startRefreshLoop()
	return a.app.Run()
}

// startEventLoop drains view and session events published by the engine
// and the state machine, rendering each on the UI goroutine.
func (a *App) startEventLoop() {
	viewCh, unsubView := a.bus.Subscribe("view.", 128)
	sessCh, unsubSess := a.bus.Subscribe("session.", 16)

	go func() {
		defer unsubView()
		defer unsubSess()
		for {
			select {
			case evt := <-viewCh:
				a.handleViewEvent(evt)
			case evt := <-sessCh:
				a.handleSessionEvent(evt)
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) handleViewEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindViewDirectoryUpdated:
		summaries, ok := evt.Payload.([]convo.Summary)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.summaries = summaries
			if currentPage, _ := a.pages.GetFrontPage(); currentPage == "conversations" {
				a.convList.Update(summaries)
			}
		})
	case bus.KindViewHistoryLoaded:
		hist, ok := evt.Payload.(*convo.History)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.thread.Update(hist.Messages)
		})
	case bus.KindViewMessageAppended:
		msg, ok := evt.Payload.(*convo.Message)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.thread.Append(msg)
		})
	}
}

func (a *App) handleSessionEvent(evt bus.Event) {
	change, ok := evt.Payload.(status.StatusChange)
	if !ok {
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetStatus(string(change.To))
	})
}

// startRefreshLoop keeps the clock and flash message current.
func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(time.Second)
	go func() {
		for {
			select {
			case <-ticker.C:
				a.app.QueueUpdateDraw(func() {
					a.statusBar.SetFlash(a.flash.Get())
				})
			case <-a.ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
