package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/glitchcity/pkg/domain"
)

// Shimmer animation for the header logo.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "GLITCH CITY" as a flowing wave that drifts
// between deep violet (#2a0a3a) and hot magenta (#ff2bd6).
func renderShimmerLogo(frame int) string {
	const text = "GLITCHCITY"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)
		b = b*0.75 + math.Sin(t*0.035)*0.12 + 0.18
		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(42 + b*(255-42))
		g := clampByte(10 + b*(43-10))
		bl := clampByte(58 + b*(214-58))
		s := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		out.WriteString(s.Render(string(text[i])))

		switch {
		case i == 5:
			out.WriteString("    ") // GLITCH / CITY
		case i < n-1:
			out.WriteString("  ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00e5ff"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5470"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffa000"))

	borderColor  = lipgloss.Color("#1e1e2a")
	surfaceColor = lipgloss.Color("#111118")

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#606878"))

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#343c4a"))

	mentionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d500f9")).
			Bold(true)

	mentionSelfStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ff80ff")).
				Bold(true)

	chatSelfTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#c0c4d0"))

	chatComposingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	chatSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	chatSysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#404858"))

	botBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#5865f2")).
			Bold(true)

	pinStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffa000"))
)

// statusColors follow the usual presence palette.
var statusColors = map[domain.Status]lipgloss.Color{
	domain.StatusOnline:  lipgloss.Color("#23a55a"),
	domain.StatusIdle:    lipgloss.Color("#f0b232"),
	domain.StatusDND:     lipgloss.Color("#f23f43"),
	domain.StatusOffline: lipgloss.Color("#80848e"),
}

// StatusDot renders a colored presence dot.
func StatusDot(s domain.Status) string {
	c, ok := statusColors[s]
	if !ok {
		c = statusColors[domain.StatusOffline]
	}
	dot := "●"
	if s == domain.StatusOffline {
		dot = "○"
	}
	return lipgloss.NewStyle().Foreground(c).Render(dot)
}

// UserStyle returns a bold style in the user's own color.
func UserStyle(u domain.User) lipgloss.Style {
	if u.Color != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(u.Color)).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpView renders the key reference overlay.
func helpView() string {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ff2bd6")).
		Bold(true).
		Render("G L I T C H   C I T Y")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(`"I see everything."`)

	attrib := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF0055")).
		Render("— System_Override")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	sections := []struct {
		name string
		keys []struct{ key, desc string }
	}{
		{"Chat", []struct{ key, desc string }{
			{"enter", "send / focus input"},
			{"esc", "leave input, cancel reply"},
			{"@", "mention a persona"},
			{"/flip /roll /poll", "dice and polls"},
		}},
		{"Messages (j/k to select)", []struct{ key, desc string }{
			{"r", "reply"},
			{"e", "edit your message"},
			{"d", "delete"},
			{"+", "react 👍 (toggle)"},
			{"p", "pin / unpin"},
			{"c", "copy text"},
			{"o", "open link"},
			{"1-9", "vote on a poll"},
			{"v", "peek at the author"},
		}},
		{"Navigation", []struct{ key, desc string }{
			{"tab", "sidebar"},
			{"ctrl+k", "quick switch"},
			{"s", "cycle your status"},
			{"x", "leave voice"},
			{"q", "quit"},
		}},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n  %s\n  %s\n", title, quote, attrib)
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n  %s\n", sectionStyle.Render(sec.name))
		for _, k := range sec.keys {
			fmt.Fprintf(&b, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", k.key)), descStyle.Render(k.desc))
		}
	}
	return b.String()
}
