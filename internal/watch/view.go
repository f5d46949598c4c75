package watch

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("watch ended: %v\n", m.err)
	}

	if !m.connected {
		return fmt.Sprintf("\n %s connecting to petd...\n", m.spin.View())
	}

	status := statusStyle.Render(fmt.Sprintf("nudging every %d min · q to quit", m.minutes))
	pet := avatarStyle.Render("(" + m.avatar + ")")

	body := pet
	if m.bubble != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, bubbleStyle.Render(m.bubble), pet)
	}

	return lipgloss.JoinVertical(lipgloss.Left, "", body, "", status) + "\n"
}
