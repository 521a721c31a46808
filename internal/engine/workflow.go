package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/praxisworks/conductor/internal/agent"
	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/internal/review"
	"github.com/praxisworks/conductor/internal/taskgraph"
	"github.com/praxisworks/conductor/internal/worker"
	"github.com/praxisworks/conductor/pkg/models"
)

// Workflow wires the engine's nodes to their collaborators: the agent
// boundary, the task graph, the worker coordinator, and the review
// gates. It owns the business content of each node; the Engine owns
// only the loop.
type Workflow struct {
	store       Store
	invoker     agent.Invoker
	coordinator *worker.Coordinator
	backoff     *escalate.Backoff

	planGate review.Gate
	codeGate review.Gate

	splitThreshold float64
	batchLimit     int
	maxTransient   int
	maxTaskRetries int
	nodeTimeout    time.Duration
}

// WorkflowConfig carries the tunables for building a workflow.
type WorkflowConfig struct {
	// SplitThreshold is the complexity score that triggers auto-split.
	SplitThreshold float64
	// BatchLimit bounds how many tasks one loop iteration selects.
	BatchLimit int
	// MaxTransientRetries bounds agent-call retries with backoff.
	MaxTransientRetries int
	// MaxTaskRetries bounds per-task implementation attempts.
	MaxTaskRetries int
	// PlanMinScore overrides the default plan gate floor when positive.
	PlanMinScore float64
	// CodeMinScore overrides the default code gate floor when positive.
	CodeMinScore float64
	// NodeTimeout bounds each agent call when positive.
	NodeTimeout time.Duration
}

// NewWorkflow builds the node set over the given collaborators.
func NewWorkflow(store Store, invoker agent.Invoker, coordinator *worker.Coordinator, backoff *escalate.Backoff, cfg WorkflowConfig) *Workflow {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = worker.DefaultWorkerCount
	}
	if cfg.MaxTransientRetries <= 0 {
		cfg.MaxTransientRetries = escalate.DefaultMaxTransientRetries
	}
	if cfg.MaxTaskRetries <= 0 {
		cfg.MaxTaskRetries = escalate.DefaultMaxStructuralRetries
	}
	if backoff == nil {
		backoff = escalate.NewBackoff(0, 0)
	}
	planGate := review.PlanGate()
	if cfg.PlanMinScore > 0 {
		planGate = review.Gate{MinScore: cfg.PlanMinScore}
	}
	codeGate := review.CodeGate()
	if cfg.CodeMinScore > 0 {
		codeGate = review.Gate{MinScore: cfg.CodeMinScore}
	}
	return &Workflow{
		store:          store,
		invoker:        invoker,
		coordinator:    coordinator,
		backoff:        backoff,
		planGate:       planGate,
		codeGate:       codeGate,
		splitThreshold: cfg.SplitThreshold,
		batchLimit:     cfg.BatchLimit,
		maxTransient:   cfg.MaxTransientRetries,
		maxTaskRetries: cfg.MaxTaskRetries,
		nodeTimeout:    cfg.NodeTimeout,
	}
}

// Nodes returns the executable node map for the engine.
func (w *Workflow) Nodes() map[Node]NodeFunc {
	return map[Node]NodeFunc{
		NodePrerequisites:     w.prerequisites,
		NodePlanning:          w.planning,
		NodeValidateA:         w.fanOutMarker,
		NodeValidateB:         w.fanOutMarker,
		NodeValidationFanIn:   w.validationFanIn,
		NodeTaskLoop:          w.taskLoop,
		NodeReviewA:           w.fanOutMarker,
		NodeReviewB:           w.fanOutMarker,
		NodeVerificationFanIn: w.verificationFanIn,
		NodeCompletion:        w.completion,
	}
}

// prerequisites verifies the run can start: the spec file must exist
// and be readable.
func (w *Workflow) prerequisites(ctx context.Context, s *models.WorkflowState) error {
	info, err := os.Stat(s.SpecPath)
	if err != nil {
		return escalate.Structural(fmt.Errorf("spec file %s: %w", s.SpecPath, err))
	}
	if info.Size() == 0 {
		return escalate.Structural(fmt.Errorf("spec file %s is empty", s.SpecPath))
	}
	return nil
}

// planning invokes the planner, decomposes the resulting plan through
// the task graph manager (scoring and auto-split included), and
// commits the task set.
func (w *Workflow) planning(ctx context.Context, s *models.WorkflowState) error {
	spec, err := os.ReadFile(s.SpecPath)
	if err != nil {
		return escalate.Structural(fmt.Errorf("read spec: %w", err))
	}

	res, err := w.invokeWithRetry(ctx, agent.Request{
		Role:   agent.RolePlanner,
		System: plannerSystemPrompt,
		Prompt: plannerPrompt(string(spec)),
	})
	if err != nil {
		return err
	}
	plan, err := agent.DecodePlan(res)
	if err != nil {
		return err
	}

	mgr := taskgraph.NewManager(w.splitThreshold)
	if err := mgr.Load(plan.Tasks); err != nil {
		return escalate.Structural(fmt.Errorf("load plan: %w", err))
	}
	if err := w.store.SaveTasks(s.RunID, mgr.Tasks()); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

// fanOutMarker is the entry step of a dual-review pair. The review
// calls themselves run concurrently in the fan-in node, which cannot
// route onward until both have returned.
func (w *Workflow) fanOutMarker(ctx context.Context, s *models.WorkflowState) error {
	return nil
}

// validationFanIn runs both plan reviewers concurrently, joins the
// verdicts, and applies the plan gate. A failed gate is a structural
// failure; the router then re-enters planning while attempts remain.
func (w *Workflow) validationFanIn(ctx context.Context, s *models.WorkflowState) error {
	tasks, err := w.store.GetTasks(s.RunID)
	if err != nil {
		return fmt.Errorf("load tasks for validation: %w", err)
	}
	prompt, err := planReviewPrompt(tasks)
	if err != nil {
		return err
	}

	a, b := w.dualReview(ctx, prompt, reviewerPlanSystemPrompt)
	result := w.planGate.Evaluate(a, b)
	if !result.Approved {
		return escalate.Structural(fmt.Errorf("plan validation gate: %s", result.Reason()))
	}
	return nil
}

// taskLoop executes one batch of ready tasks. The router decides
// whether to loop, move to review, or escalate; this node only
// advances the graph and surfaces fatal task failures.
func (w *Workflow) taskLoop(ctx context.Context, s *models.WorkflowState) error {
	stored, err := w.store.GetTasks(s.RunID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	mgr := taskgraph.NewManager(w.splitThreshold)
	if err := mgr.Load(stored); err != nil {
		return escalate.Structural(fmt.Errorf("rebuild task graph: %w", err))
	}

	if mgr.Done() {
		return nil
	}
	if mgr.Deadlocked() {
		return fmt.Errorf("task graph stalled: %w", escalate.ErrDeadlock)
	}

	batch := mgr.NextBatch(w.batchLimit)
	if len(batch) == 0 {
		// Nothing selectable but not deadlocked cannot happen once
		// in-progress tasks are reset below; treat it as a stall.
		return fmt.Errorf("no selectable tasks: %w", escalate.ErrDeadlock)
	}
	for _, t := range batch {
		t.Status = models.TaskStatusInProgress
	}

	results, err := w.coordinator.ExecuteBatch(ctx, batch, w.implement)
	if err != nil {
		return escalate.Structural(err)
	}

	var fatal error
	for _, res := range results {
		task := mgr.Task(res.TaskID)
		if res.Err == nil {
			if err := mgr.MarkCompleted(res.TaskID); err != nil {
				return err
			}
			continue
		}

		task.Attempts++
		class := escalate.Classify(res.Err)
		exhausted := task.Attempts >= w.maxTaskRetries
		if class == escalate.ClassBoundary || exhausted {
			if err := mgr.MarkFailed(res.TaskID, res.Err.Error()); err != nil {
				return err
			}
			if fatal == nil {
				fatal = &TaskError{TaskID: res.TaskID, Err: res.Err}
			}
			continue
		}
		// Attempts remain: back to pending so a later batch retries it.
		task.Status = models.TaskStatusPending
		task.Error = res.Err.Error()
	}

	if err := w.store.SaveTasks(s.RunID, mgr.Tasks()); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	if fatal != nil {
		return fatal
	}
	return nil
}

// implement runs the implementer agent for one task inside its
// worktree, with transient retries.
func (w *Workflow) implement(ctx context.Context, task *models.Task, worktreePath string) error {
	// The implementer works through side effects in the worktree; its
	// text output is not consumed.
	_, err := w.invokeWithRetry(ctx, agent.Request{
		Role:    agent.RoleImplementer,
		System:  implementerSystemPrompt,
		Prompt:  implementerPrompt(task),
		Workdir: worktreePath,
		TaskID:  task.ID,
	})
	return err
}

// verificationFanIn runs both code reviewers concurrently and applies
// the stricter code gate. A failed gate sends the run back to the
// task loop via the router.
func (w *Workflow) verificationFanIn(ctx context.Context, s *models.WorkflowState) error {
	tasks, err := w.store.GetTasks(s.RunID)
	if err != nil {
		return fmt.Errorf("load tasks for verification: %w", err)
	}
	prompt, err := codeReviewPrompt(tasks)
	if err != nil {
		return err
	}

	a, b := w.dualReview(ctx, prompt, reviewerCodeSystemPrompt)
	result := w.codeGate.Evaluate(a, b)
	if !result.Approved {
		return escalate.Structural(fmt.Errorf("verification gate: %s", result.Reason()))
	}
	return nil
}

// completion closes out the run.
func (w *Workflow) completion(ctx context.Context, s *models.WorkflowState) error {
	return nil
}

// dualReview issues the two reviewer calls concurrently and joins
// them; an errored reviewer becomes a synthesized failing verdict.
func (w *Workflow) dualReview(ctx context.Context, prompt, system string) (*models.ReviewVerdict, *models.ReviewVerdict) {
	call := func(role agent.Role) ReviewCall {
		return func(ctx context.Context) (*models.ReviewVerdict, error) {
			res, err := w.invokeWithRetry(ctx, agent.Request{
				Role:   role,
				System: system,
				Prompt: prompt,
			})
			if err != nil {
				return nil, err
			}
			return agent.DecodeVerdict(res)
		}
	}
	return FanOut(ctx, call(agent.RoleReviewerA), call(agent.RoleReviewerB))
}

// invokeWithRetry retries transient agent failures with exponential
// backoff; every other failure class returns immediately.
func (w *Workflow) invokeWithRetry(ctx context.Context, req agent.Request) (*agent.Result, error) {
	if req.Timeout == 0 {
		req.Timeout = w.nodeTimeout
	}
	var lastErr error
	for attempt := 0; attempt <= w.maxTransient; attempt++ {
		if attempt > 0 {
			if err := w.backoff.Wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
		res, err := w.invoker.Invoke(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if escalate.Classify(err) != escalate.ClassTransient {
			return nil, err
		}
	}
	return nil, lastErr
}
