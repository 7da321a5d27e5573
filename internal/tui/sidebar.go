package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/glitchcity/pkg/domain"
)

type sideKind int

const (
	sideServer sideKind = iota
	sideChannel
)

// sideItem is one selectable row: a server or a channel of the active server.
type sideItem struct {
	kind    sideKind
	id      string
	label   string
	chType  domain.ChannelType
	heading string // category name printed above the row, if it opens one
}

// switchServerMsg and switchChannelMsg ask the App to navigate.
type switchServerMsg struct{ id string }
type switchChannelMsg struct{ id string }

// sidebarModel lists servers, then the active server's channels by
// category, voice occupants and the member list with presence.
type sidebarModel struct {
	items   []sideItem
	cursor  int
	focused bool
	width   int
	height  int

	activeServer  string
	activeChannel string
	voiceChannel  string
	occupants     map[string][]string // voice channel ID -> usernames
	members       []domain.User
}

// sidebarData is the snapshot the sidebar renders from.
type sidebarData struct {
	servers       []domain.Server
	activeServer  string
	activeChannel string
	voiceChannel  string
	users         []domain.User
}

func (m sidebarModel) refresh(d sidebarData) sidebarModel {
	m.activeServer = d.activeServer
	m.activeChannel = d.activeChannel
	m.voiceChannel = d.voiceChannel
	m.items = nil
	m.occupants = make(map[string][]string)
	m.members = nil

	byID := make(map[string]domain.User, len(d.users))
	for _, u := range d.users {
		byID[u.ID] = u
	}

	var active domain.Server
	for _, srv := range d.servers {
		m.items = append(m.items, sideItem{kind: sideServer, id: srv.ID, label: srv.Name})
		if srv.ID == d.activeServer {
			active = srv
		}
	}
	for _, ch := range orderedChannels(active) {
		m.items = append(m.items, sideItem{kind: sideChannel, id: ch.Channel.ID, label: ch.Channel.Name, chType: ch.Channel.Type, heading: ch.heading})
		for _, uid := range ch.Channel.ActiveUsers {
			if u, ok := byID[uid]; ok {
				m.occupants[ch.Channel.ID] = append(m.occupants[ch.Channel.ID], u.Username)
			}
		}
	}
	for _, id := range active.Members {
		if u, ok := byID[id]; ok {
			m.members = append(m.members, u)
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
	return m
}

type headedChannel struct {
	Channel domain.Channel
	heading string
}

// orderedChannels lists channels category by category, then any that no
// category claims.
func orderedChannels(srv domain.Server) []headedChannel {
	var out []headedChannel
	placed := make(map[string]bool)
	for _, cat := range srv.Categories {
		first := true
		for _, id := range cat.ChannelIDs {
			ch, ok := srv.Channel(id)
			if !ok || placed[id] {
				continue
			}
			hc := headedChannel{Channel: ch}
			if first {
				hc.heading = cat.Name
				first = false
			}
			out = append(out, hc)
			placed[id] = true
		}
	}
	for _, ch := range srv.Channels {
		if !placed[ch.ID] {
			out = append(out, headedChannel{Channel: ch})
		}
	}
	return out
}

func (m sidebarModel) Update(msg tea.Msg) (sidebarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			if m.cursor < len(m.items) {
				it := m.items[m.cursor]
				if it.kind == sideServer {
					return m, func() tea.Msg { return switchServerMsg{id: it.id} }
				}
				return m, func() tea.Msg { return switchChannelMsg{id: it.id} }
			}
		}
	}
	return m, nil
}

func (m sidebarModel) View() string {
	var b strings.Builder
	w := max(m.width-2, 8)

	b.WriteString(" " + sectionHeaderStyle.Render("SERVERS") + "\n")
	for i, it := range m.items {
		if it.kind == sideChannel {
			if it.heading != "" {
				b.WriteString("\n " + sectionHeaderStyle.Render(strings.ToUpper(truncStr(it.heading, w))) + "\n")
			}
		} else if i > 0 && m.items[i-1].kind == sideChannel {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderItem(i, it, w) + "\n")
		for _, name := range m.occupants[it.id] {
			b.WriteString("      " + dimStyle.Render(truncStr(name, w-6)) + "\n")
		}
	}

	if len(m.members) > 0 {
		fmt.Fprintf(&b, "\n %s\n", sectionHeaderStyle.Render(fmt.Sprintf("MEMBERS — %d", len(m.members))))
		for _, u := range m.members {
			name := UserStyle(u).Render(truncStr(u.Username, w-4))
			if u.Status == domain.StatusOffline {
				name = metaStyle.Render(truncStr(u.Username, w-4))
			}
			b.WriteString(" " + StatusDot(u.Status) + " " + name + "\n")
		}
	}
	return b.String()
}

func (m sidebarModel) renderItem(i int, it sideItem, w int) string {
	cursor := "  "
	if m.focused && i == m.cursor {
		cursor = accentStyle.Render("▸") + " "
	}

	var label string
	switch {
	case it.kind == sideServer:
		label = truncStr(it.label, w-2)
		if it.id == m.activeServer {
			return " " + cursor + selectedStyle.Render(label)
		}
		return " " + cursor + dimStyle.Render(label)
	case it.chType == domain.ChannelVoice:
		label = "🔊 " + truncStr(it.label, w-5)
		if it.id == m.voiceChannel {
			return " " + cursor + accentStyle.Render(label)
		}
	case it.chType == domain.ChannelAnnouncement:
		label = "📢 " + truncStr(it.label, w-5)
	default:
		label = "# " + truncStr(it.label, w-4)
	}
	if it.id == m.activeChannel {
		return " " + cursor + selectedRowBg.Render(selectedStyle.Render(label))
	}
	return " " + cursor + dimStyle.Render(label)
}
