package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/typing"
)

// storeEventMsg reports a store mutation made by anyone, including
// personas posting from scheduler goroutines.
type storeEventMsg store.Event

// typingMsg carries the sorted IDs of personas currently composing.
type typingMsg []string

// bridge turns store and typing callbacks into tea messages. Callbacks
// never block: every message triggers a full re-read, so when the buffer
// is full the pending ones already cover a dropped event.
type bridge struct {
	ch      chan tea.Msg
	cancels []func()
}

func newBridge(st *store.Store, tr *typing.Tracker) *bridge {
	b := &bridge{ch: make(chan tea.Msg, 64)}
	b.cancels = []func(){
		st.Subscribe(func(e store.Event) {
			b.offer(storeEventMsg(e))
		}),
		tr.OnChange(func(ids []string) {
			b.offer(typingMsg(ids))
		}),
	}
	return b
}

func (b *bridge) offer(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// wait returns a command that delivers the next bridged message.
func (b *bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

func (b *bridge) close() {
	for _, cancel := range b.cancels {
		cancel()
	}
}
