package session

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	balanced lipgloss.Style
	warning  lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	gutter   lipgloss.Style
	code     lipgloss.Style
	result   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		balanced: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		gutter:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		code:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		result:   lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
	}
}
