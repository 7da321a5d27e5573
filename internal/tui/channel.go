package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/glitchcity/internal/browser"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

// cursorBlinkMsg advances the composer cursor animation.
type cursorBlinkMsg struct{}

func cursorBlinkCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(time.Time) tea.Msg {
		return cursorBlinkMsg{}
	})
}

type actionKind int

const (
	actSend actionKind = iota
	actEdit
	actDelete
	actReact
	actPin
	actVote
)

// chatAction asks the App to apply a change through the session.
type chatAction struct {
	kind   actionKind
	id     string
	text   string
	option int
}

// showPeekMsg opens the profile card for a user.
type showPeekMsg struct{ userID string }

type copyResultMsg struct{ err error }

type openResultMsg struct {
	link string
	err  error
}

// openLink is swapped out in tests.
var openLink = browser.Open

// messageLink returns the attachment URL, else the first URL in the text.
func messageLink(msg domain.Message) string {
	if msg.Attachment != nil && msg.Attachment.URL != "" {
		return msg.Attachment.URL
	}
	return urlRe.FindString(msg.Content)
}

// reactEmoji is the emoji the + key toggles.
const reactEmoji = "👍"

// slashCommands are hinted above the composer while typing "/".
var slashCommands = []struct {
	cmd  string
	desc string
}{
	{"/flip", "flip a coin"},
	{"/roll [max]", "roll 1..max (default 100)"},
	{`/poll "question" "a" "b"`, "start a poll"},
}

// chatData is the snapshot of the active channel the chat renders from.
type chatData struct {
	channel  domain.Channel
	messages []domain.Message
	users    []domain.User
	typing   []domain.User
}

// chatModel is the channel view: message log, typing line and composer.
type chatModel struct {
	channel  domain.Channel
	messages []domain.Message
	users    map[string]domain.User
	typing   []domain.User
	myID     string

	input        string
	inputFocused bool
	replyTo      string
	editing      string
	selected     int // -1 when nothing is selected
	status       string
	animFrame    int
	width        int
	height       int
	now          func() time.Time

	mentionActive  bool
	mentionQuery   string
	mentionMatches []string
	mentionCursor  int

	vp      viewport.Model
	spinner spinner.Model
}

func newChatModel(myID string) chatModel {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = accentStyle
	return chatModel{
		myID:         myID,
		users:        make(map[string]domain.User),
		inputFocused: true,
		selected:     -1,
		now:          time.Now,
		vp:           viewport.New(0, 0),
		spinner:      sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(cursorBlinkCmd(), m.spinner.Tick)
}

// setData replaces the rendered snapshot. A channel change resets
// selection and any pending reply or edit.
func (m chatModel) setData(d chatData) chatModel {
	if d.channel.ID != m.channel.ID {
		m.selected = -1
		m.replyTo = ""
		m.editing = ""
		m.status = ""
	}
	m.channel = d.channel
	m.messages = d.messages
	m.typing = d.typing
	m.users = make(map[string]domain.User, len(d.users))
	for _, u := range d.users {
		m.users[u.ID] = u
	}
	if m.selected >= len(m.messages) {
		m.selected = len(m.messages) - 1
	}
	return m.layout()
}

func (m chatModel) setTyping(typing []domain.User) chatModel {
	m.typing = typing
	return m.layout()
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m.layout(), nil

	case cursorBlinkMsg:
		m.animFrame++
		return m, cursorBlinkCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case copyResultMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = "copied"
		}
		return m.layout(), nil

	case openResultMsg:
		if msg.err != nil {
			m.status = "open failed: " + msg.err.Error()
		} else {
			m.status = "opened " + truncStr(msg.link, 40)
		}
		return m.layout(), nil

	case tea.KeyMsg:
		m.animFrame = 0
		if m.inputFocused {
			return m.updateInput(msg)
		}
		return m.updateNav(msg)
	}
	return m, nil
}

func (m chatModel) updateInput(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	key := msg.String()

	if m.mentionActive {
		switch key {
		case "tab", "enter":
			if len(m.mentionMatches) > 0 {
				m.input = strings.TrimSuffix(m.input, "@"+m.mentionQuery) + "@" + m.mentionMatches[m.mentionCursor] + " "
				m = m.closeMention()
				return m.layout(), nil
			}
			m = m.closeMention()
			if key == "tab" {
				return m.layout(), nil
			}
		case "up":
			if m.mentionCursor > 0 {
				m.mentionCursor--
			}
			return m.layout(), nil
		case "down":
			if m.mentionCursor < len(m.mentionMatches)-1 {
				m.mentionCursor++
			}
			return m.layout(), nil
		case "esc", " ":
			if key == " " {
				m.input += " "
			}
			return m.closeMention().layout(), nil
		case "backspace":
			if m.mentionQuery == "" {
				m.input = strings.TrimSuffix(m.input, "@")
				return m.closeMention().layout(), nil
			}
			m.mentionQuery = editRune(m.mentionQuery, "backspace")
			m.input = editRune(m.input, "backspace")
			m.mentionMatches = m.filterNames(m.mentionQuery)
			m.mentionCursor = 0
			return m.layout(), nil
		default:
			if utf8.RuneCountInString(key) == 1 {
				if utf8.RuneCountInString(m.input) >= maxInputLen {
					return m, nil
				}
				m.mentionQuery += key
				m.input += key
				m.mentionMatches = m.filterNames(m.mentionQuery)
				m.mentionCursor = 0
				if len(m.mentionMatches) == 0 {
					m = m.closeMention()
				}
				return m.layout(), nil
			}
			return m, nil
		}
	}

	switch key {
	case "esc":
		switch {
		case m.editing != "":
			m.editing = ""
			m.input = ""
		case m.replyTo != "":
			m.replyTo = ""
		default:
			m.inputFocused = false
		}
		m.status = ""
		return m.layout(), nil

	case "shift+enter", "alt+enter":
		if utf8.RuneCountInString(m.input) < maxInputLen {
			m.input += "\n"
		}
		return m.layout(), nil

	case "enter":
		body := strings.TrimSpace(m.input)
		if body == "" {
			return m, nil
		}
		act := chatAction{kind: actSend, id: m.replyTo, text: body}
		if m.editing != "" {
			act = chatAction{kind: actEdit, id: m.editing, text: body}
		}
		m.input = ""
		m.replyTo = ""
		m.editing = ""
		m.status = ""
		m.selected = -1
		return m.layout(), func() tea.Msg { return act }

	case "@":
		if utf8.RuneCountInString(m.input) >= maxInputLen {
			return m, nil
		}
		m.input += "@"
		m.mentionActive = true
		m.mentionQuery = ""
		m.mentionMatches = m.filterNames("")
		m.mentionCursor = 0
		if len(m.mentionMatches) == 0 {
			m.mentionActive = false
		}
		return m.layout(), nil

	default:
		m.input = editRune(m.input, key)
		return m.layout(), nil
	}
}

func (m chatModel) closeMention() chatModel {
	m.mentionActive = false
	m.mentionQuery = ""
	m.mentionMatches = nil
	m.mentionCursor = 0
	return m
}

func (m chatModel) updateNav(msg tea.KeyMsg) (chatModel, tea.Cmd) {
	key := msg.String()
	sel, hasSel := m.selectedMessage()

	switch key {
	case "j", "down":
		if m.selected >= 0 && m.selected < len(m.messages)-1 {
			m.selected++
		} else {
			m.selected = -1
		}
	case "k", "up":
		switch {
		case m.selected < 0:
			m.selected = len(m.messages) - 1
		case m.selected > 0:
			m.selected--
		}
	case "G", "end":
		m.selected = -1
	case "pgup":
		m.vp.SetYOffset(m.vp.YOffset - m.vp.Height)
		return m, nil
	case "pgdown":
		m.vp.SetYOffset(m.vp.YOffset + m.vp.Height)
		return m, nil
	case "enter", "i":
		m.inputFocused = true
		m.status = ""
	case "r":
		if hasSel {
			m.replyTo = sel.ID
			m.editing = ""
			m.inputFocused = true
		}
	case "e":
		if hasSel && sel.UserID == m.myID {
			m.editing = sel.ID
			m.replyTo = ""
			m.input = sel.Content
			m.inputFocused = true
		} else if hasSel {
			m.status = "you can only edit your own messages"
		}
	case "d":
		if hasSel {
			return m.layout(), func() tea.Msg { return chatAction{kind: actDelete, id: sel.ID} }
		}
	case "+":
		if hasSel {
			return m, func() tea.Msg { return chatAction{kind: actReact, id: sel.ID, text: reactEmoji} }
		}
	case "p":
		if hasSel {
			return m, func() tea.Msg { return chatAction{kind: actPin, id: sel.ID} }
		}
	case "c":
		if hasSel {
			text := sel.Content
			return m, func() tea.Msg {
				return copyResultMsg{err: clipboard.WriteAll(text)}
			}
		}
	case "o":
		if hasSel {
			link := messageLink(sel)
			if link == "" {
				m.status = "no link in that message"
				return m.layout(), nil
			}
			return m, func() tea.Msg {
				return openResultMsg{link: link, err: openLink(link)}
			}
		}
	case "v":
		if hasSel {
			id := sel.UserID
			return m, func() tea.Msg { return showPeekMsg{userID: id} }
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if hasSel && sel.Poll != nil {
			opt := int(key[0] - '1')
			if opt < len(sel.Poll.Options) {
				return m, func() tea.Msg { return chatAction{kind: actVote, id: sel.ID, option: opt} }
			}
		}
	}
	return m.layout(), nil
}

func (m chatModel) selectedMessage() (domain.Message, bool) {
	if m.selected < 0 || m.selected >= len(m.messages) {
		return domain.Message{}, false
	}
	return m.messages[m.selected], true
}

// filterNames returns persona usernames with the given prefix, ignoring case.
func (m chatModel) filterNames(query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, u := range m.users {
		if u.ID == m.myID || u.ID == domain.SystemUserID {
			continue
		}
		if strings.HasPrefix(strings.ToLower(u.Username), q) {
			out = append(out, u.Username)
		}
	}
	sort.Strings(out)
	return out
}

func (m chatModel) myName() string {
	if u, ok := m.users[m.myID]; ok {
		return u.Username
	}
	return "you"
}

// chromeLines counts the rows below the message log.
func (m chatModel) chromeLines() int {
	n := 2 + strings.Count(m.input, "\n") // typing line + composer
	if m.replyTo != "" || m.editing != "" {
		n++
	}
	if m.status != "" {
		n++
	}
	if m.inputFocused && strings.HasPrefix(m.input, "/") {
		n += len(m.slashHints())
	}
	if m.mentionActive {
		n += min(len(m.mentionMatches), 5)
	}
	return n
}

// layout sizes the viewport and re-renders the log into it. The log stays
// pinned to the bottom unless a message is selected, in which case the
// selection is scrolled into view.
func (m chatModel) layout() chatModel {
	m.vp.Width = m.width
	m.vp.Height = max(m.height-1-m.chromeLines(), 2) // 1 for the channel header

	lines, starts := m.renderLog()
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.selected < 0 || m.selected >= len(starts) {
		m.vp.GotoBottom()
		return m
	}
	top := starts[m.selected]
	bottom := len(lines)
	if m.selected+1 < len(starts) {
		bottom = starts[m.selected+1]
	}
	switch {
	case top < m.vp.YOffset:
		m.vp.SetYOffset(top)
	case bottom > m.vp.YOffset+m.vp.Height:
		m.vp.SetYOffset(bottom - m.vp.Height)
	}
	return m
}

// renderLog renders every message and returns the lines plus the first
// line index of each message.
func (m chatModel) renderLog() ([]string, []int) {
	var lines []string
	starts := make([]int, len(m.messages))
	for i, msg := range m.messages {
		starts[i] = len(lines)
		lines = append(lines, m.renderMessage(msg, i == m.selected)...)
	}
	if len(lines) == 0 {
		lines = []string{"", " " + dimStyle.Render(fmt.Sprintf("this is the start of #%s", m.channel.Name))}
	}
	return lines, starts
}

func (m chatModel) author(id string) domain.User {
	if u, ok := m.users[id]; ok {
		return u
	}
	if id == domain.SystemUserID {
		return domain.User{ID: id, Username: "SYSTEM", Color: "#ff5470"}
	}
	return domain.User{ID: id, Username: "unknown"}
}

func (m chatModel) findMessage(id string) (domain.Message, bool) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return domain.Message{}, false
}

// renderMessage renders one message as lines: reply context, header and
// wrapped body, then attachment, poll and reactions.
func (m chatModel) renderMessage(msg domain.Message, selected bool) []string {
	var out []string
	marker := "  "
	if selected {
		marker = accentStyle.Render("▌") + " "
	}
	bodyWidth := max(m.width-6, 20)

	// A reply whose target is gone renders as a plain message.
	if msg.ReplyToID != "" {
		if orig, ok := m.findMessage(msg.ReplyToID); ok {
			ref := UserStyle(m.author(orig.UserID)).Render("@"+m.author(orig.UserID).Username) + " " +
				dimStyle.Render(truncStr(oneLine(orig.Content), max(bodyWidth-20, 10)))
			out = append(out, marker+metaStyle.Render("╭─ ")+ref)
		}
	}

	if msg.UserID == domain.SystemUserID {
		for _, line := range wrapBody(msg.Content, bodyWidth) {
			out = append(out, marker+errorStyle.Render(line))
		}
		return out
	}

	u := m.author(msg.UserID)
	header := UserStyle(u).Render(u.Username)
	if u.Bot {
		header += " " + botBadgeStyle.Render(" BOT ")
	}
	header += "  " + metaStyle.Render(formatChatTime(msg.Timestamp, m.now()))
	if msg.Pinned {
		header += " " + pinStyle.Render("📌")
	}
	out = append(out, marker+header)

	bodyStyle := chatTextStyle
	if msg.UserID == m.myID {
		bodyStyle = chatSelfTextStyle
	}
	body := wrapBody(msg.Content, bodyWidth)
	if msg.Edited {
		body[len(body)-1] += " " + metaStyle.Render("(edited)")
	}
	for _, line := range body {
		out = append(out, marker+bodyStyle.Render(renderBody(line, m.myName())))
	}

	if a := msg.Attachment; a != nil {
		out = append(out, marker+dimStyle.Render("["+a.Type+"] ")+hyperlinkOSC8(a.URL))
	}
	if msg.Poll != nil {
		out = append(out, m.renderPoll(msg.Poll, marker, bodyWidth)...)
	}
	if len(msg.Reactions) > 0 {
		out = append(out, marker+renderReactions(msg.Reactions))
	}
	if selected {
		for i := range out {
			out[i] = selectedRowBg.Render(out[i])
		}
	}
	return out
}

func (m chatModel) renderPoll(p *domain.Poll, marker string, width int) []string {
	total := p.TotalVotes()
	out := []string{marker + goldStyle.Bold(true).Render("📊 "+p.Question)}
	barWidth := max(min(width-30, 20), 5)
	for i, o := range p.Options {
		pct := 0
		if total > 0 {
			pct = o.Votes * 100 / total
		}
		filled := pct * barWidth / 100
		bar := accentStyle.Render(strings.Repeat("█", filled)) + metaStyle.Render(strings.Repeat("░", barWidth-filled))
		check := " "
		if o.HasVoter(m.myID) {
			check = accentStyle.Render("✓")
		}
		out = append(out, fmt.Sprintf("%s %s %d %s %s %s",
			marker, check, i+1, bar, normalStyle.Render(truncStr(o.Text, 30)), metaStyle.Render(fmt.Sprintf("%d (%d%%)", o.Votes, pct))))
	}
	out = append(out, marker+metaStyle.Render(fmt.Sprintf("   %d votes", total)))
	return out
}

// renderReactions renders "emoji count" chips; the human's own are highlighted.
func renderReactions(reactions []domain.Reaction) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		chip := fmt.Sprintf("%s %d", r.Emoji, r.Count)
		if r.Me {
			parts = append(parts, accentStyle.Render("["+chip+"]"))
		} else {
			parts = append(parts, dimStyle.Render(" "+chip+" "))
		}
	}
	return strings.Join(parts, " ")
}

// typingLine describes who is composing.
func (m chatModel) typingLine() string {
	names := make([]string, 0, len(m.typing))
	for _, u := range m.typing {
		names = append(names, lipgloss.NewStyle().Bold(true).Render(u.Username))
	}
	var text string
	switch len(names) {
	case 0:
		return ""
	case 1:
		text = names[0] + " is typing..."
	case 2:
		text = names[0] + " and " + names[1] + " are typing..."
	default:
		text = "Several people are typing..."
	}
	return " " + m.spinner.View() + " " + dimStyle.Render(text)
}

func (m chatModel) slashHints() []string {
	prefix := strings.ToLower(strings.Fields(m.input + " ")[0])
	var out []string
	for _, sc := range slashCommands {
		if strings.HasPrefix(sc.cmd, prefix) {
			out = append(out, "   "+accentStyle.Render(sc.cmd)+"  "+dimStyle.Render(sc.desc))
		}
	}
	return out
}

func (m chatModel) View() string {
	var b strings.Builder

	icon := "#"
	if m.channel.Type == domain.ChannelAnnouncement {
		icon = "📢"
	}
	b.WriteString(" " + selectedStyle.Render(icon+" "+m.channel.Name) + "\n")
	b.WriteString(m.vp.View() + "\n")

	if m.inputFocused && strings.HasPrefix(m.input, "/") {
		for _, h := range m.slashHints() {
			b.WriteString(h + "\n")
		}
	}
	if m.mentionActive {
		for i, name := range m.mentionMatches {
			if i == 5 {
				break
			}
			if i == m.mentionCursor {
				b.WriteString("   " + accentStyle.Render("▸ "+name) + "\n")
			} else {
				b.WriteString("     " + dimStyle.Render(name) + "\n")
			}
		}
	}

	b.WriteString(m.typingLine() + "\n")

	switch {
	case m.editing != "":
		b.WriteString(" " + goldStyle.Render("editing message") + "  " + helpEntry("esc", "cancel") + "\n")
	case m.replyTo != "":
		target := "a message"
		if orig, ok := m.findMessage(m.replyTo); ok {
			target = "@" + m.author(orig.UserID).Username
		}
		b.WriteString(" " + dimStyle.Render("replying to ") + accentStyle.Render(target) + "  " + helpEntry("esc", "cancel") + "\n")
	}

	placeholder := "message #" + m.channel.Name
	b.WriteString(renderComposer(m.myName(), m.input, placeholder, m.inputFocused, m.animFrame))

	if m.status != "" {
		b.WriteString("\n " + dimStyle.Render(m.status))
	}
	return b.String()
}
