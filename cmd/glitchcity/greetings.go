package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var cityGreetings = [...]string{
	"The rain never stops. Neither does the chat.",
	"NeonViper is online. Lock your ports.",
	"Code_Sensei says the answer is in the stack trace. It usually is.",
	"Someone in #neon-plaza is arguing about synthwave again.",
	"System_Override has flagged your arrival. Smile for the logs.",
	"The black market opens when you type. Not before.",
	"Every message is a packet. Every packet is a story.",
	"Pixel_Punk is offline. Probably rendering something enormous.",
	"The corp news channel lies. The regulars don't.",
	"Say hi. Somebody will answer. Eventually.",
}

var (
	bannerTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D500F9")).Bold(true)
	bannerQuote  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	bannerAccent = lipgloss.NewStyle().Foreground(lipgloss.Color("#00E5FF"))
	bannerDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bannerCmd    = lipgloss.NewStyle().Bold(true)
)

// printBanner writes the version card. pick chooses the greeting index.
func printBanner(w io.Writer, version string, pick func(n int) int) {
	msg := cityGreetings[pick(len(cityGreetings))]

	commands := []struct{ cmd, desc string }{
		{"glitchcity", "Jack in (interactive TUI)"},
		{"glitchcity say", "Send one message and print the replies"},
		{"glitchcity personas", "List the regulars"},
		{"glitchcity version", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s %s\n\n  %s\n\n  Commands:\n", //nolint:errcheck
		bannerTitle.Render("G L I T C H C I T Y"), bannerAccent.Render(version), bannerQuote.Render(msg))
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", bannerCmd.Render(fmt.Sprintf("%-20s", c.cmd)), bannerDim.Render(c.desc)) //nolint:errcheck
	}
	fmt.Fprintln(w) //nolint:errcheck
}
