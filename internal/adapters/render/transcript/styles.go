package transcript

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	system    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	content   lipgloss.Style
	meta      lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	pending   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		system:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		content:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(2),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		success:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		failure:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		pending:   lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
	}
}
