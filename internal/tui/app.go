package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/session"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

type focus int

const (
	focusChat focus = iota
	focusSidebar
)

// sidebarWidth is the fixed width of the server/channel column.
const sidebarWidth = 28

// statusCycle is the order the s key walks through.
var statusCycle = []domain.Status{domain.StatusOnline, domain.StatusIdle, domain.StatusDND, domain.StatusOffline}

// App is the root Bubbletea model. It reads everything through the session
// and re-renders whenever the store or the typing tracker reports a change.
type App struct {
	ctx    context.Context
	sess   *session.Session
	bridge *bridge
	logger *zap.Logger

	chat     chatModel
	sidebar  sidebarModel
	peek     peekModel
	peekOpen bool
	helpOpen bool
	focus    focus

	quickOpen    bool
	quickQuery   string
	quickMatches []session.ChannelMatch
	quickCursor  int

	width  int
	height int
	frame  int
}

// NewApp creates the TUI over an open session. ctx bounds sends made from
// the composer.
func NewApp(ctx context.Context, sess *session.Session, logger *zap.Logger) App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := App{
		ctx:    ctx,
		sess:   sess,
		bridge: newBridge(sess.Store(), sess.Tracker()),
		logger: logger,
		chat:   newChatModel(sess.Store().HumanID()),
	}
	return a.reload()
}

// Close detaches the App from the store.
func (a App) Close() {
	a.bridge.close()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.chat.Init(), shimmerTickCmd(), a.bridge.wait())
}

// reload re-reads the session into the sub-models.
func (a App) reload() App {
	st := a.sess.Store()
	users := st.Users()
	voice, _ := a.sess.VoiceChannel()
	a.sidebar = a.sidebar.refresh(sidebarData{
		servers:       st.Servers(),
		activeServer:  a.sess.ActiveServer().ID,
		activeChannel: a.sess.ActiveChannelID(),
		voiceChannel:  voice.ID,
		users:         users,
	})
	a.chat = a.chat.setData(chatData{
		channel:  a.sess.ActiveChannel(),
		messages: a.sess.Messages(),
		users:    users,
		typing:   a.sess.Typing(),
	})
	return a
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(1) + help(1)
		bodyHeight := msg.Height - 2
		a.sidebar, _ = a.sidebar.Update(tea.WindowSizeMsg{Width: sidebarWidth, Height: bodyHeight})
		a.chat, _ = a.chat.Update(tea.WindowSizeMsg{Width: max(msg.Width-sidebarWidth-1, 20), Height: bodyHeight})
		a.peek, _ = a.peek.Update(msg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case storeEventMsg:
		return a.reload(), a.bridge.wait()

	case typingMsg:
		a.chat = a.chat.setTyping(a.sess.Typing())
		return a, a.bridge.wait()

	case chatAction:
		return a.apply(msg), nil

	case switchServerMsg:
		if err := a.sess.SwitchServer(msg.id); err != nil {
			a.chat.status = err.Error()
		}
		a.focus = focusChat
		return a.reload(), nil

	case switchChannelMsg:
		if err := a.sess.SwitchChannel(msg.id); err != nil {
			a.chat.status = err.Error()
		}
		a.focus = focusChat
		return a.reload(), nil

	case showPeekMsg:
		u, ok := a.sess.Store().User(msg.userID)
		a.peek = newPeekModel(u, ok, a.width)
		a.peekOpen = true
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	if a.helpOpen {
		switch key {
		case "h", "?", "esc":
			a.helpOpen = false
		case "q":
			return a, tea.Quit
		}
		return a, nil
	}

	if a.peekOpen {
		var cmd tea.Cmd
		a.peek, cmd = a.peek.Update(msg)
		if a.peek.closed {
			a.peekOpen = false
		}
		return a, cmd
	}

	if a.quickOpen {
		return a.updateQuick(key)
	}

	if key == "ctrl+k" {
		a.quickOpen = true
		a.quickQuery = ""
		a.quickCursor = 0
		a.quickMatches = a.sess.QuickSwitch("")
		return a, nil
	}
	if key == "tab" && !a.chat.mentionActive {
		if a.focus == focusChat {
			a.focus = focusSidebar
			a.chat.inputFocused = false
		} else {
			a.focus = focusChat
		}
		a.sidebar.focused = a.focus == focusSidebar
		return a, nil
	}

	if !a.isEditing() {
		switch key {
		case "q":
			return a, tea.Quit
		case "h", "?":
			a.helpOpen = true
			return a, nil
		case "s":
			a.sess.SetStatus(nextStatus(a.myStatus()))
			return a, nil
		case "x":
			a.sess.DisconnectVoice()
			return a.reload(), nil
		}
	}

	var cmd tea.Cmd
	if a.focus == focusSidebar {
		a.sidebar, cmd = a.sidebar.Update(msg)
		return a, cmd
	}
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a App) updateQuick(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "ctrl+k":
		a.quickOpen = false
		return a, nil
	case "up":
		if a.quickCursor > 0 {
			a.quickCursor--
		}
		return a, nil
	case "down":
		if a.quickCursor < len(a.quickMatches)-1 {
			a.quickCursor++
		}
		return a, nil
	case "enter":
		a.quickOpen = false
		if a.quickCursor < len(a.quickMatches) {
			id := a.quickMatches[a.quickCursor].Channel.ID
			return a, func() tea.Msg { return switchChannelMsg{id: id} }
		}
		return a, nil
	}
	a.quickQuery = editRune(a.quickQuery, key)
	a.quickMatches = a.sess.QuickSwitch(a.quickQuery)
	a.quickCursor = 0
	return a, nil
}

// apply performs a chat action through the session.
func (a App) apply(act chatAction) App {
	var ok bool
	switch act.kind {
	case actSend:
		res, err := a.sess.Send(a.ctx, act.text, act.id)
		if err != nil {
			if errors.Is(err, session.ErrEmptyMessage) {
				return a
			}
			a.chat.status = "send failed: " + err.Error()
			a.logger.Warn("send failed", zap.Error(err))
			return a
		}
		a.logger.Debug("sent", zap.String("id", res.Message.ID), zap.Int("targets", len(res.Targets)))
		return a
	case actEdit:
		ok = a.sess.Edit(act.id, act.text)
	case actDelete:
		ok = a.sess.Delete(act.id)
	case actReact:
		ok = a.sess.React(act.id, act.text)
	case actPin:
		ok = a.sess.TogglePin(act.id)
	case actVote:
		ok = a.sess.Vote(act.id, act.option)
	}
	if !ok {
		a.chat.status = "message is gone"
	}
	return a
}

func (a App) isEditing() bool {
	return a.focus == focusChat && a.chat.inputFocused
}

func (a App) myStatus() domain.Status {
	u, _ := a.sess.Store().User(a.sess.Store().HumanID())
	return u.Status
}

func nextStatus(s domain.Status) domain.Status {
	for i, st := range statusCycle {
		if st == s {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return domain.StatusOnline
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	srv := a.sess.ActiveServer()
	right := dimStyle.Render(srv.Name) + "  " + StatusDot(a.myStatus())
	gap := a.width - lipgloss.Width(logo) - lipgloss.Width(right) - 2
	header := " " + logo + strings.Repeat(" ", max(gap, 1)) + right

	bodyHeight := max(a.height-2, 1)
	var body string
	switch {
	case a.helpOpen:
		body = helpView()
	case a.peekOpen:
		body = a.peek.View()
	case a.quickOpen:
		body = a.quickView()
	default:
		side := lipgloss.NewStyle().
			Width(sidebarWidth).
			Height(bodyHeight).
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(borderColor).
			Render(truncateToHeight(a.sidebar.View(), bodyHeight))
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, truncateToHeight(a.chat.View(), bodyHeight))
	}
	body = strings.TrimRight(truncateToHeight(body, bodyHeight), "\n")

	return header + "\n" + body + "\n" + a.helpBar()
}

func (a App) helpBar() string {
	var entries []string
	switch {
	case a.helpOpen:
		entries = []string{helpEntry("esc", "close")}
	case a.peekOpen:
		entries = []string{helpEntry("esc", "close")}
	case a.quickOpen:
		entries = []string{helpEntry("↑/↓", "nav"), helpEntry("enter", "open"), helpEntry("esc", "close")}
	case a.focus == focusSidebar:
		entries = []string{helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("tab", "chat"), helpEntry("h", "help"), helpEntry("q", "quit")}
	case a.chat.inputFocused:
		entries = []string{helpEntry("enter", "send"), helpEntry("@", "mention"), helpEntry("esc", "nav"), helpEntry("tab", "sidebar"), helpEntry("ctrl+k", "switch")}
	default:
		entries = []string{helpEntry("j/k", "select"), helpEntry("r", "reply"), helpEntry("+", "react"), helpEntry("enter", "type"), helpEntry("s", "status"), helpEntry("h", "help"), helpEntry("q", "quit")}
	}
	bar := " " + strings.Join(entries, "  ")
	if vc, ok := a.sess.VoiceChannel(); ok {
		bar += "   " + accentStyle.Render("🔊 "+vc.Name) + " " + helpEntry("x", "leave")
	}
	return bar
}

func (a App) quickView() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("SWITCH CHANNEL") + "\n\n")
	b.WriteString(" " + accentStyle.Render("> ") + chatComposingStyle.Render(a.quickQuery) + accentStyle.Render("█") + "\n\n")
	if len(a.quickMatches) == 0 {
		b.WriteString(" " + dimStyle.Render("no channels match") + "\n")
	}
	for i, m := range a.quickMatches {
		line := "# " + m.Channel.Name + "  " + metaStyle.Render(m.ServerName)
		if i == a.quickCursor {
			b.WriteString(" " + accentStyle.Render("▸ ") + selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString("   " + dimStyle.Render(line) + "\n")
		}
	}
	return b.String()
}
