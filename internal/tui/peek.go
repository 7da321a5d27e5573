package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/glitchcity/pkg/domain"
)

// peekModel is the profile card overlay for a user.
type peekModel struct {
	user   domain.User
	found  bool
	closed bool
	width  int
}

func newPeekModel(u domain.User, found bool, width int) peekModel {
	return peekModel{user: u, found: found, width: width}
}

func (m peekModel) Update(msg tea.Msg) (peekModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "v":
			m.closed = true
		}
	}
	return m, nil
}

func (m peekModel) View() string {
	if !m.found {
		return "\n " + dimStyle.Render("no such user")
	}

	u := m.user
	cardWidth := min(50, m.width-4)
	if cardWidth < 30 {
		cardWidth = 30
	}
	accent := lipgloss.Color("#8890a0")
	if u.Color != "" {
		accent = lipgloss.Color(u.Color)
	}
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Background(surfaceColor).
		Padding(1, 2).
		Width(cardWidth)

	var sb strings.Builder
	sb.WriteString(StatusDot(u.Status) + " " + UserStyle(u).Render(u.Username))
	if u.Discriminator != "" {
		sb.WriteString(metaStyle.Render("#" + u.Discriminator))
	}
	if u.Bot {
		sb.WriteString(" " + botBadgeStyle.Render(" BOT "))
	}
	sb.WriteString("\n")
	sb.WriteString("  " + dimStyle.Render(string(u.Status)))
	if u.Activity != "" {
		sb.WriteString(" · " + normalStyle.Render(u.Activity))
	}
	sb.WriteString("\n")

	if u.AboutMe != "" {
		sb.WriteString("\n" + sectionHeaderStyle.Render("ABOUT ME") + "\n")
		sb.WriteString(normalStyle.Render(u.AboutMe) + "\n")
	}
	if len(u.Roles) > 0 {
		sb.WriteString("\n" + sectionHeaderStyle.Render("ROLES") + "\n")
		chips := make([]string, len(u.Roles))
		for i, r := range u.Roles {
			chips[i] = lipgloss.NewStyle().Foreground(accent).Render("● ") + normalStyle.Render(r)
		}
		sb.WriteString(strings.Join(chips, "  ") + "\n")
	}

	sb.WriteString("\n" + helpEntry("esc", "close"))
	return "\n" + border.Render(sb.String())
}
