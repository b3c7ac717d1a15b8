package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBad    = lipgloss.Color("#FF0000")
	colorWarn   = lipgloss.Color("#FFFF00")
	colorGood   = lipgloss.Color("#00FF00")
	colorMuted  = lipgloss.Color("#888888")
	colorAccent = lipgloss.Color("#7B68EE")
	colorBorder = lipgloss.Color("#444444")
)

// Panel styles
var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleDetailPanel = lipgloss.NewStyle().
				Padding(0, 1).
				BorderStyle(lipgloss.NormalBorder()).
				BorderTop(true).
				BorderForeground(colorBorder)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	styleSearchPrompt = lipgloss.NewStyle().
				Foreground(colorAccent).Bold(true)

	styleMetricName = lipgloss.NewStyle().Foreground(colorMuted)
)

// statusStyle returns the lipgloss style for a scan status.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "ok":
		return lipgloss.NewStyle().Foreground(colorGood)
	case "fallback":
		return lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	case "failed":
		return lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}

// trendStyle colors a trend direction.
func trendStyle(direction string) lipgloss.Style {
	switch direction {
	case "improving":
		return lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	case "degrading":
		return lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	default:
		return lipgloss.NewStyle()
	}
}
