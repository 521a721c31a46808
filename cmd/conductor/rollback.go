package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/praxisworks/conductor/internal/config"
	"github.com/praxisworks/conductor/internal/escalate"
)

var rollbackList bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback <checkpoint> [run-id]",
	Short: "Restore a run from a checkpoint",
	Long: `Restore a run's state and task set from a named checkpoint, such as
pre_validation or pre_implementation. Work done after the checkpoint is
discarded; resume the run afterwards with 'conductor resume'.

Use --list to see the checkpoints a run has.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackList, "list", false, "List available checkpoints")
}

func runRollback(cmd *cobra.Command, args []string) error {
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

	if rollbackList {
		s, err := lookupRun(db, args)
		if err != nil {
			return err
		}
		checkpoints, err := db.ListCheckpoints(s.RunID)
		if err != nil {
			return err
		}
		if len(checkpoints) == 0 {
			fmt.Printf("run %s has no checkpoints\n", s.RunID)
			return nil
		}
		fmt.Printf("checkpoints for run %s:\n", s.RunID)
		for _, cp := range checkpoints {
			fmt.Printf("  %s (%s, %s)\n", cp.Name, cp.Phase, cp.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("checkpoint name required (see --list)")
	}
	name := args[0]
	s, err := lookupRun(db, args[1:])
	if err != nil {
		return err
	}

	escMgr := escalate.NewManager(db, cfg.Engine.MaxTransientRetries, cfg.Engine.MaxStructuralRetries)
	restored, err := escMgr.Rollback(s.RunID, name)
	if errors.Is(err, escalate.ErrCheckpointNotFound) {
		return fmt.Errorf("run %s has no checkpoint named %q (see --list)", s.RunID, name)
	}
	if err != nil {
		return err
	}

	green.Printf("run %s restored from %s (phase %s, node %s)\n",
		restored.RunID, name, restored.CurrentPhase, restored.CurrentNode)
	fmt.Println("continue with: conductor resume")
	return nil
}
