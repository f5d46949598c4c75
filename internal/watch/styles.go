package watch

import "github.com/charmbracelet/lipgloss"

var (
	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("180")).
			Padding(0, 1).
			MaxWidth(60)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	avatarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)
