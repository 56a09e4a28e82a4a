package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var colorDisabled bool

// NoColor drops all ANSI styling, for piped output and plain terminals.
func NoColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	colorDisabled = true
}

var (
	Header = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	Label  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	Value  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	Graph  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	Help   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	Frame  = lipgloss.NewStyle().Padding(1, 2)
	Panel  = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(1, 2)
)
