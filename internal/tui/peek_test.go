package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/glitchcity/pkg/domain"
)

func testPersona() domain.User {
	return domain.User{
		ID:            "u2",
		Username:      "NeonViper",
		Discriminator: "1234",
		Status:        domain.StatusIdle,
		Activity:      "Hacking Corp Servers",
		Color:         "#D500F9",
		AboutMe:       "Stealing data, breaking hearts.",
		Roles:         []string{"Hacker", "Elite"},
	}
}

func TestPeekShowsProfile(t *testing.T) {
	m := newPeekModel(testPersona(), true, 80)
	view := m.View()
	for _, want := range []string{"NeonViper", "#1234", "idle", "Hacking Corp Servers", "Stealing data", "Hacker", "Elite"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in peek view, got:\n%s", want, view)
		}
	}
	if strings.Contains(view, "BOT") {
		t.Errorf("human-looking persona rendered a BOT badge:\n%s", view)
	}
}

func TestPeekBotBadge(t *testing.T) {
	u := testPersona()
	u.Bot = true
	view := newPeekModel(u, true, 80).View()
	if !strings.Contains(view, "BOT") {
		t.Errorf("expected BOT badge, got:\n%s", view)
	}
}

func TestPeekUnknownUser(t *testing.T) {
	view := newPeekModel(domain.User{}, false, 80).View()
	if !strings.Contains(view, "no such user") {
		t.Errorf("expected 'no such user', got:\n%s", view)
	}
}

func TestPeekCloseKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyEsc},
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyRunes, Runes: []rune("v")},
	} {
		t.Run(key.String(), func(t *testing.T) {
			m := newPeekModel(testPersona(), true, 80)
			m, _ = m.Update(key)
			if !m.closed {
				t.Errorf("key %q should close peek", key.String())
			}
		})
	}
}

func TestPeekIgnoresOtherKeys(t *testing.T) {
	m := newPeekModel(testPersona(), true, 80)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if m.closed {
		t.Error("f should not close peek")
	}
}

func TestPeekNarrowTerminalKeepsMinimumWidth(t *testing.T) {
	view := newPeekModel(testPersona(), true, 10).View()
	if !strings.Contains(view, "NeonViper") {
		t.Errorf("narrow peek lost the username:\n%s", view)
	}
}
