package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/praxisworks/conductor/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	escalationStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("conductor"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  run %s", a.runID)))
	b.WriteString("\n\n")

	if a.err != nil {
		b.WriteString(failStyle.Render(fmt.Sprintf("error: %v", a.err)))
		b.WriteString("\n")
		return b.String()
	}
	if a.summary == nil {
		b.WriteString(a.spinner.View())
		b.WriteString(dimStyle.Render(" loading state"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(a.renderPhases())
	b.WriteString("\n")
	b.WriteString(a.renderTasks())

	if len(a.summary.Milestones) > 0 {
		b.WriteString("\n")
		b.WriteString(a.renderMilestones())
	}
	if a.summary.PendingEscalation != nil {
		b.WriteString("\n")
		b.WriteString(a.renderEscalation())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("updated %s  ·  q quit  r refresh",
		a.summary.UpdatedAt.Local().Format("15:04:05"))))
	b.WriteString("\n")
	return b.String()
}

// renderPhases draws the six-phase pipeline with one status glyph per
// phase.
func (a *App) renderPhases() string {
	var b strings.Builder
	for _, phase := range models.AllPhases() {
		name := phase.String()
		status := a.summary.PhaseStatus[name]

		var glyph string
		switch models.PhaseStatus(status) {
		case models.PhaseStatusCompleted:
			glyph = okStyle.Render("✓")
		case models.PhaseStatusInProgress:
			glyph = a.spinner.View()
		case models.PhaseStatusFailed:
			glyph = failStyle.Render("✗")
		default:
			glyph = dimStyle.Render("○")
		}

		line := fmt.Sprintf("  %s %-15s", glyph, name)
		if name == a.summary.Phase {
			line += warnStyle.Render(" ◀")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// renderTasks draws the task counters.
func (a *App) renderTasks() string {
	s := a.summary
	line := fmt.Sprintf("  tasks %d/%d", s.TasksCompleted, s.TasksTotal)
	if s.TasksFailed > 0 {
		line += failStyle.Render(fmt.Sprintf("  %d failed", s.TasksFailed))
	}
	return line + "\n"
}

// renderMilestones draws per-milestone completion counts.
func (a *App) renderMilestones() string {
	var b strings.Builder
	for _, m := range a.summary.Milestones {
		marker := dimStyle.Render("·")
		if m.Completed == m.Total && m.Total > 0 {
			marker = okStyle.Render("✓")
		}
		fmt.Fprintf(&b, "  %s %s %d/%d\n", marker, m.Name, m.Completed, m.Total)
	}
	return b.String()
}

// renderEscalation draws the pending escalation panel with its
// question and options.
func (a *App) renderEscalation() string {
	esc := a.summary.PendingEscalation

	var b strings.Builder
	b.WriteString(warnStyle.Render("waiting for human input"))
	b.WriteString("\n")
	b.WriteString(esc.Reason)
	if esc.TaskID != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  (task %s)", esc.TaskID)))
	}
	if esc.Question != "" {
		b.WriteString("\n")
		b.WriteString(esc.Question)
	}
	if len(esc.Options) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("options: " + strings.Join(esc.Options, ", ")))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("resolve with: conductor resume --respond <option> (escalation %s)", esc.ID)))

	return escalationStyle.Render(b.String()) + "\n"
}
