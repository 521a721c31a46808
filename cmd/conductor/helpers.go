package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/praxisworks/conductor/internal/agent"
	"github.com/praxisworks/conductor/internal/config"
	"github.com/praxisworks/conductor/internal/engine"
	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/internal/git"
	"github.com/praxisworks/conductor/internal/state"
	"github.com/praxisworks/conductor/internal/worker"
	"github.com/praxisworks/conductor/pkg/models"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

// openStore opens and migrates the project state database.
func openStore(cfg *config.Config, repoRoot string) (*state.DB, error) {
	db, err := state.Open(resolvePath(repoRoot, cfg.Storage.DBPath))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// resolvePath anchors a relative config path at the repository root.
func resolvePath(repoRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// buildInvoker selects the agent invoker from configuration.
func buildInvoker(cfg *config.Config) (agent.Invoker, error) {
	switch cfg.Invoker.Mode {
	case "cli":
		return agent.NewCLIInvoker(cfg.Invoker.Binary), nil
	case "api", "":
		return agent.NewAPIInvoker(agent.APIConfig{
			Model:     cfg.Anthropic.Model,
			APIKey:    cfg.Anthropic.APIKey,
			MaxTokens: int64(cfg.Anthropic.MaxTokens),
		})
	default:
		return nil, fmt.Errorf("unknown invoker mode %q (want api or cli)", cfg.Invoker.Mode)
	}
}

// buildEngine assembles the full engine stack for the repository at
// repoRoot. The returned RunLog must be closed by the caller.
func buildEngine(cfg *config.Config, db *state.DB, repoRoot, runID string) (*engine.Engine, *engine.RunLog, error) {
	invoker, err := buildInvoker(cfg)
	if err != nil {
		return nil, nil, err
	}

	runner := git.NewRunner(repoRoot)
	manager, err := worker.NewWorktreeManager("", repoRoot, runner)
	if err != nil {
		return nil, nil, err
	}
	if removed, err := manager.CleanupOrphans(); err == nil && removed > 0 {
		faint.Fprintf(os.Stderr, "cleaned up %d orphaned worktrees\n", removed)
	}

	runBranch, err := runner.CurrentBranch()
	if err != nil {
		return nil, nil, fmt.Errorf("determine run branch: %w", err)
	}
	coordinator := worker.NewCoordinator(manager, runner, runBranch, cfg.Engine.Workers)

	backoff := escalate.NewBackoff(cfg.Engine.BackoffBase, cfg.Engine.BackoffCap)
	workflow := engine.NewWorkflow(db, invoker, coordinator, backoff, engine.WorkflowConfig{
		SplitThreshold:      cfg.Engine.SplitThreshold,
		BatchLimit:          cfg.Engine.Workers,
		MaxTransientRetries: cfg.Engine.MaxTransientRetries,
		MaxTaskRetries:      cfg.Engine.MaxTaskRetries,
		PlanMinScore:        cfg.Gates.PlanMinScore,
		CodeMinScore:        cfg.Gates.CodeMinScore,
		NodeTimeout:         cfg.Invoker.Timeout,
	})

	logger, err := engine.OpenRunLog(resolvePath(repoRoot, cfg.Storage.LogDir), runID)
	if err != nil {
		return nil, nil, err
	}

	escMgr := escalate.NewManager(db, cfg.Engine.MaxTransientRetries, cfg.Engine.MaxStructuralRetries)
	return engine.New(db, escMgr, workflow.Nodes(), logger), logger, nil
}

// reportOutcome prints the terminal condition of a run.
func reportOutcome(s *models.WorkflowState, db *state.DB, err error) error {
	switch {
	case err == nil:
		green.Printf("run %s complete\n", s.RunID)
		return nil
	case errors.Is(err, engine.ErrSuspended):
		yellow.Printf("run %s suspended for human input\n", s.RunID)
		if rec, recErr := db.PendingEscalation(s.RunID); recErr == nil && rec != nil {
			fmt.Printf("  reason: %s\n", rec.Reason)
			if rec.TaskID != "" {
				fmt.Printf("  task: %s\n", rec.TaskID)
			}
			if rec.Question != "" {
				fmt.Printf("  question: %s\n", rec.Question)
			}
			fmt.Printf("  respond with: conductor resume %s --respond <%s>\n",
				s.RunID, optionsOrDefault(rec.Options))
		}
		return nil
	default:
		red.Fprintf(os.Stderr, "run %s failed: %v\n", s.RunID, err)
		return err
	}
}

func optionsOrDefault(options []string) string {
	if len(options) == 0 {
		options = escalate.DefaultOptions
	}
	out := options[0]
	for _, o := range options[1:] {
		out += "|" + o
	}
	return out
}

// lookupRun resolves an optional run-id argument, falling back to the
// most recently updated run.
func lookupRun(db *state.DB, args []string) (*models.WorkflowState, error) {
	if len(args) > 0 {
		s, err := db.GetState(args[0])
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, fmt.Errorf("run %s not found", args[0])
		}
		return s, nil
	}

	s, err := db.GetActiveRun()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("no runs found; start one with 'conductor run <spec.md>'")
	}
	return s, nil
}
