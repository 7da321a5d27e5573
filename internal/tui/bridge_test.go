package tui

import (
	"testing"

	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/typing"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

func TestBridgeForwardsTyping(t *testing.T) {
	st, tr := store.New(store.Seed{HumanID: "me", Users: testUsers()}), typing.New()
	b := newBridge(st, tr)
	defer b.close()

	tr.Add("u2")
	msg, ok := (<-b.ch).(typingMsg)
	if !ok || len(msg) != 1 || msg[0] != "u2" {
		t.Errorf("bridge delivered %#v, want typingMsg{u2}", msg)
	}
}

func TestBridgeCloseStopsBothFeeds(t *testing.T) {
	st, tr := store.New(store.Seed{HumanID: "me", Users: testUsers()}), typing.New()
	b := newBridge(st, tr)
	b.close()

	tr.Add("u2")
	tr.Remove("u2")
	st.AppendMessage("c1", domain.Message{UserID: "u2", Content: "after close"})

	if n := len(b.ch); n != 0 {
		t.Errorf("closed bridge queued %d messages, want 0", n)
	}
}
