package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
	"github.com/praxisworks/conductor/internal/engine"
	"github.com/praxisworks/conductor/internal/escalate"
)

var resumeRespond string

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Resume a suspended run",
	Long: `Resume a run that suspended for human input or was interrupted.

If the run has a pending escalation, answer it with --respond first; a
suspended run cannot continue until its escalation is resolved.
Without a run-id the most recently updated run is resumed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeRespond, "respond", "", "Answer the pending escalation (e.g. retry, skip, abort)")
}

func runResume(cmd *cobra.Command, args []string) error {
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

	s, err := lookupRun(db, args)
	if err != nil {
		return err
	}

	if resumeRespond != "" {
		rec, err := db.PendingEscalation(s.RunID)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("run %s has no pending escalation", s.RunID)
		}
		escMgr := escalate.NewManager(db, cfg.Engine.MaxTransientRetries, cfg.Engine.MaxStructuralRetries)
		if _, err := escMgr.Resolve(rec.ID, resumeRespond); err != nil {
			return err
		}
		faint.Printf("escalation %s resolved: %s\n", rec.ID, resumeRespond)
	}

	eng, logger, err := buildEngine(cfg, db, repoRoot, s.RunID)
	if err != nil {
		return err
	}
	defer logger.Close()

	final, err := eng.Resume(cmd.Context(), s.RunID)
	if errors.Is(err, engine.ErrAwaitingHuman) {
		yellow.Printf("run %s is still waiting for a response\n", s.RunID)
		fmt.Println("answer it with: conductor resume --respond <option>")
		return nil
	}
	return reportOutcome(final, db, err)
}
