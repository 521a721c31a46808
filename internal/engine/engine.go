package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/internal/state"
	"github.com/praxisworks/conductor/pkg/models"
)

// ErrSuspended is returned by Run when the workflow escalated to a
// human. The run is persisted; Resume continues it after resolution.
var ErrSuspended = errors.New("run suspended pending human input")

// ErrAwaitingHuman is returned by Resume while the escalation is
// still unresolved.
var ErrAwaitingHuman = errors.New("escalation is still awaiting a response")

// Store is the slice of persistence the engine needs.
type Store interface {
	state.WorkflowStore
	state.TaskStore
	state.CheckpointStore
	state.EscalationStore
}

// NodeFunc executes one node's work against the state. On success it
// may set NextDecision (fan-in gates set retry); returning an error
// hands the failure to the escalation manager instead.
type NodeFunc func(ctx context.Context, s *models.WorkflowState) error

// Engine drives the workflow: run node, commit, route, repeat. It
// contains no business branching of its own.
type Engine struct {
	store   Store
	esc     *escalate.Manager
	routers Routers
	nodes   map[Node]NodeFunc
	logger  *RunLog
}

// New creates an engine over the given node implementations.
func New(store Store, esc *escalate.Manager, nodes map[Node]NodeFunc, logger *RunLog) *Engine {
	return &Engine{
		store:   store,
		esc:     esc,
		routers: Routers{MaxAttempts: esc.MaxStructuralRetries()},
		nodes:   nodes,
		logger:  logger,
	}
}

// riskyCheckpoints names the phases that get a checkpoint before their
// first node runs, so rollback has a target.
var riskyCheckpoints = map[models.Phase]string{
	models.PhaseValidation:     "pre_validation",
	models.PhaseImplementation: "pre_implementation",
}

// Run advances the workflow until it ends or suspends. The returned
// state is always the last committed one; on ErrSuspended the run can
// be picked up later by Resume.
func (e *Engine) Run(ctx context.Context, s *models.WorkflowState) (*models.WorkflowState, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		node := Node(s.CurrentNode)
		switch node {
		case NodeEnd:
			return e.finish(s)
		case NodeHumanEscalation:
			return e.suspend(s)
		}

		phase, ok := node.Phase()
		if !ok {
			return s, fmt.Errorf("unknown node %q", s.CurrentNode)
		}
		fn := e.nodes[node]
		if fn == nil {
			return s, fmt.Errorf("no implementation for node %q", node)
		}

		if err := e.enterPhase(s, phase); err != nil {
			return s, err
		}

		s.NextDecision = models.DecisionContinue
		if err := fn(ctx, s); err != nil {
			e.applyFailure(s, node, phase, err)
		} else if s.NextDecision == models.DecisionContinue {
			e.completeNode(s, node, phase)
		}

		// Single serialization point: effects become visible only
		// after this commit, and only then does routing happen.
		if err := e.store.SaveState(s); err != nil {
			return s, fmt.Errorf("commit state after %s: %w", node, err)
		}

		in, err := e.routerInput(s)
		if err != nil {
			return s, err
		}
		next := e.routers.For(node)(in)
		e.logger.Transition(s.RunID, node, next, s.NextDecision)

		s.CurrentNode = string(next)
		if err := e.store.SaveState(s); err != nil {
			return s, fmt.Errorf("commit routing to %s: %w", next, err)
		}
	}
}

// enterPhase moves the run into a node's phase, closing out the
// previous one and checkpointing before risky transitions.
func (e *Engine) enterPhase(s *models.WorkflowState, phase models.Phase) error {
	if phase > s.CurrentPhase {
		if s.PhaseStatus[s.CurrentPhase] == models.PhaseStatusInProgress {
			s.PhaseStatus[s.CurrentPhase] = models.PhaseStatusCompleted
		}
		s.CurrentPhase = phase
	}

	if s.PhaseStatus[phase] == models.PhaseStatusPending {
		if name, risky := riskyCheckpoints[phase]; risky {
			tasks, err := e.store.GetTasks(s.RunID)
			if err != nil {
				return fmt.Errorf("load tasks for checkpoint: %w", err)
			}
			if err := e.esc.Checkpoint(name, s, tasks); err != nil {
				return err
			}
			e.logger.Checkpoint(s.RunID, name)
		}
	}
	s.PhaseStatus[phase] = models.PhaseStatusInProgress
	return nil
}

// completeNode records a phase's completion when its last node
// finished with a plain continue.
func (e *Engine) completeNode(s *models.WorkflowState, node Node, phase models.Phase) {
	switch node {
	case NodePrerequisites, NodePlanning, NodeValidationFanIn,
		NodeVerificationFanIn, NodeCompletion:
		s.PhaseStatus[phase] = models.PhaseStatusCompleted
	}
}

// applyFailure normalizes a node error into the state: append to the
// error list, bump the retry counter for retryable classes, and let
// the escalation manager pick the decision. The router acts on the
// decision; the engine never branches on the error itself.
func (e *Engine) applyFailure(s *models.WorkflowState, node Node, phase models.Phase, err error) {
	class := escalate.Classify(err)
	if class == escalate.ClassStructural || class == escalate.ClassTransient {
		s.IterationCount[phase]++
	}

	we := models.WorkflowError{
		Node:    string(node),
		Phase:   phase,
		Class:   string(class),
		Message: err.Error(),
	}
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		we.TaskID = taskErr.TaskID
	}
	s.RecordError(we)

	s.NextDecision = e.esc.Decide(class, s.IterationCount[phase])
	e.logger.Failure(s.RunID, node, class, err)
}

// routerInput builds the pure router input, computing the graph flags
// synchronously from the committed task snapshot.
func (e *Engine) routerInput(s *models.WorkflowState) (Input, error) {
	in := Input{State: s.Clone()}

	tasks, err := e.store.GetTasks(s.RunID)
	if err != nil {
		return in, fmt.Errorf("load tasks for routing: %w", err)
	}
	if len(tasks) > 0 {
		in.Deadlocked, in.TasksDone = graphFlags(tasks)
	}
	return in, nil
}

// graphFlags derives the deadlock and completion signals from a task
// snapshot without mutating it.
func graphFlags(tasks []*models.Task) (deadlocked, done bool) {
	byID := make(map[string]*models.Task, len(tasks))
	var active []*models.Task
	for _, t := range tasks {
		byID[t.ID] = t
		if t.Active() {
			active = append(active, t)
		}
	}

	// depSatisfied resolves one dependency edge, following a superseded
	// task to its replacement children.
	var depSatisfied func(id string, seen map[string]bool) bool
	depSatisfied = func(id string, seen map[string]bool) bool {
		if seen[id] {
			return false
		}
		seen[id] = true
		d, ok := byID[id]
		if !ok {
			return false
		}
		if !d.Active() {
			if len(d.SupersededBy) == 0 {
				return false
			}
			for _, child := range d.SupersededBy {
				if !depSatisfied(child, seen) {
					return false
				}
			}
			return true
		}
		return d.Status == models.TaskStatusCompleted
	}

	depsCompleted := func(t *models.Task) bool {
		for _, dep := range t.DependsOn {
			if !depSatisfied(dep, map[string]bool{}) {
				return false
			}
		}
		return true
	}

	done = true
	incomplete := 0
	progressPossible := false
	for _, t := range active {
		switch t.Status {
		case models.TaskStatusCompleted:
			continue
		case models.TaskStatusInProgress:
			done = false
			progressPossible = true
		case models.TaskStatusPending:
			done = false
			incomplete++
			if depsCompleted(t) {
				progressPossible = true
			}
		default:
			done = false
			incomplete++
		}
	}
	deadlocked = incomplete > 0 && !progressPossible
	return deadlocked, done
}

// finish commits the terminal state.
func (e *Engine) finish(s *models.WorkflowState) (*models.WorkflowState, error) {
	if s.PhaseStatus[s.CurrentPhase] == models.PhaseStatusInProgress {
		s.PhaseStatus[s.CurrentPhase] = models.PhaseStatusCompleted
	}
	if err := e.store.SaveState(s); err != nil {
		return s, fmt.Errorf("commit terminal state: %w", err)
	}
	e.logger.End(s.RunID)
	return s, nil
}

// suspend writes the durable escalation artifacts and returns control
// to the caller. Resumption is a fresh invocation, never a blocked
// goroutine.
func (e *Engine) suspend(s *models.WorkflowState) (*models.WorkflowState, error) {
	if s.PendingInterrupt == nil {
		esc := escalate.Escalation{
			Reason:     "workflow escalated for human input",
			ResumeNode: string(e.resumeNodeFor(s)),
			Attempts:   s.IterationCount[s.CurrentPhase],
		}
		if last := s.LastError(); last != nil {
			esc.LastError = last.Message
			esc.TaskID = last.TaskID
			esc.Reason = fmt.Sprintf("%s failed: %s", last.Node, last.Message)
			if last.Class == string(escalate.ClassAmbiguity) {
				esc.Question = last.Message
			}
		}
		rec, err := e.esc.Suspend(s, esc)
		if err != nil {
			return s, err
		}

		tasks, err := e.store.GetTasks(s.RunID)
		if err != nil {
			return s, fmt.Errorf("load tasks for escalation checkpoint: %w", err)
		}
		if err := e.esc.Checkpoint("escalation", s, tasks); err != nil {
			return s, err
		}
		e.logger.Escalation(s.RunID, rec)
	}

	if err := e.store.SaveState(s); err != nil {
		return s, fmt.Errorf("commit suspended state: %w", err)
	}
	return s, ErrSuspended
}

// resumeNodeFor picks the node a resolved escalation re-enters: the
// node that recorded the last error, falling back to the current one.
func (e *Engine) resumeNodeFor(s *models.WorkflowState) Node {
	if last := s.LastError(); last != nil && Node(last.Node).Valid() {
		return Node(last.Node)
	}
	return NodeTaskLoop
}

// Resume picks a suspended run back up after its escalation has been
// resolved, applying the human's response and re-entering the loop.
func (e *Engine) Resume(ctx context.Context, runID string) (*models.WorkflowState, error) {
	s, err := e.store.GetState(runID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	if s.PendingInterrupt != nil {
		rec, err := e.store.GetEscalation(s.PendingInterrupt.EscalationID)
		if err != nil {
			return s, err
		}
		if rec == nil {
			return s, fmt.Errorf("escalation %s not found", s.PendingInterrupt.EscalationID)
		}
		if rec.Pending() {
			return s, ErrAwaitingHuman
		}
		if err := e.applyResolution(s, rec); err != nil {
			return s, err
		}
	}
	return e.Run(ctx, s)
}

// applyResolution translates the human response into state changes.
// "abort" ends the run; "skip" accepts the failed task as done and
// moves on; anything else re-enters the recorded resume node with a
// fresh retry budget.
func (e *Engine) applyResolution(s *models.WorkflowState, rec *models.EscalationRecord) error {
	resume := s.PendingInterrupt.ResumeNode
	s.PendingInterrupt = nil

	switch rec.Response {
	case "abort":
		s.CurrentNode = string(NodeEnd)
		return nil
	case "skip":
		if rec.TaskID != "" {
			if err := e.skipTask(s.RunID, rec.TaskID); err != nil {
				return err
			}
		}
		s.CurrentNode = resume
	default:
		s.CurrentNode = resume
	}
	s.IterationCount[s.CurrentPhase] = 0
	s.NextDecision = models.DecisionContinue
	return nil
}

// skipTask marks an escalated task completed on the operator's
// authority so its dependents can proceed.
func (e *Engine) skipTask(runID, taskID string) error {
	tasks, err := e.store.GetTasks(runID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID == taskID {
			t.Status = models.TaskStatusCompleted
			t.Error = "skipped by operator"
		}
		// Unblock dependents that were parked behind the failure.
		if t.Status == models.TaskStatusBlocked && t.BlockedReason == "dependency_failed:"+taskID {
			t.Status = models.TaskStatusPending
			t.BlockedReason = ""
		}
	}
	return e.store.SaveTasks(runID, tasks)
}

// TaskError attaches a task identity to a failure so escalations can
// reference the task involved.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
