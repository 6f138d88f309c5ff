package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f2f2f2")).
			Background(lipgloss.Color("#101F38")).
			Padding(0, 2)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5A50A"))
)

func printBanner(w io.Writer, subtitle string) {
	io.WriteString(w, lipgloss.JoinHorizontal(lipgloss.Center,
		bannerStyle.Render("rollcall "+version), "  ", subtleStyle.Render(subtitle))+"\n\n")
}
