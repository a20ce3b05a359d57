package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ccff")).Bold(true)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688")).Italic(true)
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	barHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

// bar renders frac in [0,1] as a filled gauge.
func bar(frac float64, width int) string {
	filled := int(frac * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	s := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case frac > 0.99:
		return barHighStyle.Render(s)
	case frac > 0.4:
		return barMidStyle.Render(s)
	}
	return barLowStyle.Render(s)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}
