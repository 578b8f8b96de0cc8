package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/byteness/detective-graph-config/enablement"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	noopStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// styleStatus colors status for terminal output.
func styleStatus(status enablement.Status, color bool) string {
	s := status.String()
	if !color {
		return s
	}
	switch status {
	case enablement.StatusEnabled, enablement.StatusDeregistered:
		return okStyle.Render(s)
	case enablement.StatusAlreadyEnabled, enablement.StatusAlreadyDeregistered:
		return noopStyle.Render(s)
	case enablement.StatusFailed:
		return failStyle.Render(s)
	}
	return s
}
