package commands

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#00ff9f")
	colorDim     = lipgloss.Color("#6e7681")
	colorError   = lipgloss.Color("#ff5f87")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(10)
	valueStyle = lipgloss.NewStyle()
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

// field is one label/value row of a box.
type field struct {
	label string
	value string
}

// renderBox renders a titled box of label/value rows.
func renderBox(title string, fields []field) string {
	rows := []string{titleStyle.Render(title), ""}
	for _, f := range fields {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(f.label), valueStyle.Render(f.value)))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
