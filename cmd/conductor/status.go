package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
	"github.com/praxisworks/conductor/internal/state"
	"github.com/praxisworks/conductor/internal/tui"
	"github.com/praxisworks/conductor/pkg/models"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run progress",
	Long: `Display the phase pipeline, task progress, and any pending
escalation for a run. Without a run-id the most recently updated run
is shown.

With --watch, an interactive dashboard stays open and refreshes as the
run advances.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep an interactive dashboard open")
}

func runStatus(cmd *cobra.Command, args []string) error {
	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := resolvePath(repoRoot, cfg.Storage.DBPath)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs yet. Start one with 'conductor run <spec.md>'.")
		return nil
	}

	db, err := openStore(cfg, repoRoot)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := lookupRun(db, args)
	if err != nil {
		return err
	}

	if statusWatch {
		app := tui.New(db, s.RunID, dbPath, cfg.TUI.RefreshRate)
		_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
		return err
	}

	summary, err := db.GetSummary(s.RunID)
	if err != nil {
		return err
	}
	displaySummary(summary)
	return nil
}

func displaySummary(s *state.Summary) {
	fmt.Printf("Run %s\n", s.RunID)
	fmt.Printf("  Phase: %s\n", s.Phase)

	for _, phase := range models.AllPhases() {
		name := phase.String()
		status := s.PhaseStatus[name]
		switch models.PhaseStatus(status) {
		case models.PhaseStatusCompleted:
			green.Printf("  ✓ %s\n", name)
		case models.PhaseStatusInProgress:
			yellow.Printf("  … %s\n", name)
		case models.PhaseStatusFailed:
			red.Printf("  ✗ %s\n", name)
		default:
			faint.Printf("  ○ %s\n", name)
		}
	}

	fmt.Printf("  Tasks: %d/%d complete", s.TasksCompleted, s.TasksTotal)
	if s.TasksFailed > 0 {
		red.Printf(", %d failed", s.TasksFailed)
	}
	fmt.Println()

	for _, m := range s.Milestones {
		fmt.Printf("    %s: %d/%d\n", m.Name, m.Completed, m.Total)
	}

	if esc := s.PendingEscalation; esc != nil {
		fmt.Println()
		yellow.Println("  Waiting for human input:")
		fmt.Printf("    %s\n", esc.Reason)
		if esc.Question != "" {
			fmt.Printf("    %s\n", esc.Question)
		}
		fmt.Printf("    respond with: conductor resume %s --respond <%s>\n",
			s.RunID, optionsOrDefault(esc.Options))
	}

	if !s.UpdatedAt.IsZero() {
		faint.Printf("  Updated: %s ago\n", formatDuration(time.Since(s.UpdatedAt)))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
