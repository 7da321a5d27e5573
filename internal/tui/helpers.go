package tui

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// mentionRe matches @word patterns in message text.
var mentionRe = regexp.MustCompile(`@(\w+)`)

// urlRe matches http/https URLs in message text.
var urlRe = regexp.MustCompile(`https?://[^\s<>\[\]()]+`)

// boldRe matches **bold** spans from slash command output.
var boldRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// oneLine collapses newlines and runs of whitespace.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// formatChatTime renders a short wall-clock time for today's messages and
// a day count for older ones.
func formatChatTime(t, now time.Time) string {
	y1, mo1, d1 := t.Date()
	y2, mo2, d2 := now.Date()
	if y1 == y2 && mo1 == mo2 && d1 == d2 {
		return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
	}
	days := int(now.Sub(t).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("%dd ago", days)
}

// renderBody highlights @mentions, bolds **spans** and linkifies URLs.
func renderBody(body, myName string) string {
	body = urlRe.ReplaceAllStringFunc(body, hyperlinkOSC8)
	body = boldRe.ReplaceAllStringFunc(body, func(m string) string {
		return lipgloss.NewStyle().Bold(true).Render(strings.Trim(m, "*"))
	})
	return mentionRe.ReplaceAllStringFunc(body, func(match string) string {
		if strings.EqualFold(match[1:], myName) {
			return mentionSelfStyle.Render(match)
		}
		return mentionStyle.Render(match)
	})
}

// hyperlinkOSC8 wraps a URL in OSC 8 escape sequences for clickable terminal hyperlinks.
func hyperlinkOSC8(url string) string {
	return "\033]8;;" + url + "\a" + url + "\033]8;;\a"
}

// hardWrap hard-breaks any line wider than width at a rune boundary.
// Long tokens like URLs defeat lipgloss word wrapping.
func hardWrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if lipgloss.Width(line) <= width {
			result = append(result, line)
			continue
		}
		runes := []rune(line)
		for len(runes) > 0 {
			end := len(runes)
			for end > 0 && lipgloss.Width(string(runes[:end])) > width {
				end--
			}
			if end == 0 {
				end = 1
			}
			result = append(result, string(runes[:end]))
			runes = runes[end:]
		}
	}
	return strings.Join(result, "\n")
}

// wrapBody word-wraps s to width and hard-breaks what is left over.
func wrapBody(s string, width int) []string {
	if width < 10 {
		width = 10
	}
	wrapped := hardWrap(lipgloss.NewStyle().Width(width).Render(s), width)
	lines := strings.Split(wrapped, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}
