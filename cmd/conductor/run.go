package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
	"github.com/praxisworks/conductor/pkg/models"
)

var runCmd = &cobra.Command{
	Use:   "run <spec.md>",
	Short: "Execute a specification end to end",
	Long: `Run a specification through the full workflow: prerequisites,
planning, dual plan review, parallel implementation, dual code review,
and completion.

The run is durable. If it escalates or is interrupted, pick it up again
with 'conductor resume'.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	specPath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if _, err := os.Stat(specPath); err != nil {
		return fmt.Errorf("spec file: %w", err)
	}

	repoRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openStore(cfg, repoRoot)
	if err != nil {
		return err
	}
	defer db.Close()

	s := models.NewWorkflowState(uuid.NewString(), specPath)
	eng, logger, err := buildEngine(cfg, db, repoRoot, s.RunID)
	if err != nil {
		return err
	}
	defer logger.Close()

	faint.Printf("run %s started\n", s.RunID)
	final, err := eng.Run(cmd.Context(), s)
	return reportOutcome(final, db, err)
}
