package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/remotexec/internal/provisioner"
)

var (
	planColorGreen  = lipgloss.Color("#22c55e")
	planColorYellow = lipgloss.Color("#eab308")
	planColorRed    = lipgloss.Color("#ef4444")
	planColorDim    = lipgloss.Color("#6b7280")
	planColorWhite  = lipgloss.Color("#f9fafb")
)

var (
	planTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(planColorWhite)

	planDimStyle = lipgloss.NewStyle().
			Foreground(planColorDim)

	planActionStyles = map[provisioner.Action]lipgloss.Style{
		provisioner.ActionNone:          lipgloss.NewStyle().Foreground(planColorDim),
		provisioner.ActionCreate:        lipgloss.NewStyle().Foreground(planColorGreen),
		provisioner.ActionReplace:       lipgloss.NewStyle().Foreground(planColorYellow),
		provisioner.ActionDeleteReplace: lipgloss.NewStyle().Foreground(planColorRed),
	}
)

// renderPlan produces a lipgloss-styled summary of planned transitions.
func renderPlan(outcomes []*provisioner.Outcome) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(planTitleStyle.Render("  remotexec plan"))
	b.WriteString("\n")
	b.WriteString(planDimStyle.Render("  " + strings.Repeat("─", 40)))
	b.WriteString("\n")

	counts := make(map[provisioner.Action]int)
	for _, o := range outcomes {
		counts[o.Action]++
		b.WriteString(fmt.Sprintf("  %-24s %s", o.Unit, planActionStyles[o.Action].Render(string(o.Action))))
		if o.Diff != nil && len(o.Diff.Replaces) > 0 {
			b.WriteString(planDimStyle.Render("  (" + strings.Join(o.Diff.Replaces, ", ") + ")"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(planDimStyle.Render(fmt.Sprintf("  %d to create, %d to replace, %d unchanged",
		counts[provisioner.ActionCreate],
		counts[provisioner.ActionReplace]+counts[provisioner.ActionDeleteReplace],
		counts[provisioner.ActionNone])))
	b.WriteString("\n")

	return b.String()
}
