package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Spec-to-delivery workflow engine",
	Long: `Conductor drives a specification through planning, dual plan review,
parallel implementation in git worktrees, dual code review, and
completion. Runs are durable: every node transition is committed to a
local SQLite database, so an interrupted or escalated run can be
resumed exactly where it stopped.

Start a run with 'conductor run <spec.md>', watch it with
'conductor status --watch', and answer escalations with
'conductor resume --respond <option>'.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
