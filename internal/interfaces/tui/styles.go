package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor     = lipgloss.Color("7")
	accentColor  = lipgloss.Color("12")
	successColor = lipgloss.Color("10")
	dangerColor  = lipgloss.Color("9")

	userBubble = lipgloss.NewStyle().
			Foreground(successColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(successColor).
			Padding(0, 1)

	assistantBubble = lipgloss.NewStyle().
			Foreground(accentColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)
)

// formatFooter renders alternating key and description pairs.
func formatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}
