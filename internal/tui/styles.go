package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("245"))
	focusStyle = lipgloss.NewStyle().Width(22).Bold(true).Foreground(lipgloss.Color("11"))

	toggleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("10")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func roleLabel(role string) string {
	switch role {
	case "user":
		return userStyle.Render("You:")
	case "assistant":
		return assistantStyle.Render("Planner:")
	default:
		return helpStyle.Render(role + ":")
	}
}
