package engine

import "github.com/praxisworks/conductor/pkg/models"

// Input is everything a router may read. The graph flags are computed
// synchronously by the engine from the already-loaded task snapshot
// before the router runs; routers themselves never perform I/O.
type Input struct {
	// State is a clone of the committed workflow state.
	State *models.WorkflowState
	// Deadlocked is true when no task is selectable or in progress
	// but incomplete tasks remain.
	Deadlocked bool
	// TasksDone is true when every active task is completed.
	TasksDone bool
}

// Router is a pure function from router input to the next node.
type Router func(in Input) Node

// route applies the uniform precedence shared by every router:
// abort wins, then an explicit escalation, then retry while attempts
// remain, then forced escalation on exhaustion, then the default
// forward edge. retryTarget is the node a retry re-enters; for fan-in
// routers that is the phase's owning node, not the fan-in itself.
func route(in Input, retryTarget, forward Node, maxAttempts int) Node {
	s := in.State
	attempts := s.IterationCount[s.CurrentPhase]

	switch s.NextDecision {
	case models.DecisionAbort:
		return NodeEnd
	case models.DecisionEscalate:
		return NodeHumanEscalation
	case models.DecisionRetry:
		if attempts < maxAttempts {
			return retryTarget
		}
		return NodeHumanEscalation
	}
	if attempts >= maxAttempts {
		return NodeHumanEscalation
	}
	return forward
}

// Routers holds the router set, parameterized only by the structural
// retry bound so the whole set stays pure and deterministic.
type Routers struct {
	// MaxAttempts is the per-phase structural retry bound.
	MaxAttempts int
}

// For returns the router for a node. Fan-out members share their
// entry node's router since the engine advances them as one step.
func (r Routers) For(n Node) Router {
	switch n {
	case NodePrerequisites:
		return r.prerequisites
	case NodePlanning:
		return r.planning
	case NodeValidateA, NodeValidateB:
		return func(Input) Node { return NodeValidationFanIn }
	case NodeValidationFanIn:
		return r.validationFanIn
	case NodeTaskLoop:
		return r.taskLoop
	case NodeReviewA, NodeReviewB:
		return func(Input) Node { return NodeVerificationFanIn }
	case NodeVerificationFanIn:
		return r.verificationFanIn
	case NodeCompletion:
		return func(Input) Node { return NodeEnd }
	default:
		return func(Input) Node { return NodeEnd }
	}
}

func (r Routers) prerequisites(in Input) Node {
	return route(in, NodePrerequisites, NodePlanning, r.MaxAttempts)
}

func (r Routers) planning(in Input) Node {
	return route(in, NodePlanning, NodeValidateA, r.MaxAttempts)
}

// validationFanIn gates the dual plan verdicts. A failed gate retries
// the planning node, not the fan-in itself.
func (r Routers) validationFanIn(in Input) Node {
	return route(in, NodePlanning, NodeTaskLoop, r.MaxAttempts)
}

// taskLoop runs deadlock detection before the default edges: a
// deadlocked graph escalates instead of looping forever, a finished
// graph moves on to review, and anything else selects the next batch.
func (r Routers) taskLoop(in Input) Node {
	s := in.State
	switch s.NextDecision {
	case models.DecisionAbort:
		return NodeEnd
	case models.DecisionEscalate:
		return NodeHumanEscalation
	case models.DecisionRetry:
		if s.IterationCount[s.CurrentPhase] < r.MaxAttempts {
			return NodeTaskLoop
		}
		return NodeHumanEscalation
	}
	if in.Deadlocked {
		return NodeHumanEscalation
	}
	if in.TasksDone {
		return NodeReviewA
	}
	return NodeTaskLoop
}

// verificationFanIn gates the dual code verdicts. A failed gate sends
// the run back to the task loop to address the findings.
func (r Routers) verificationFanIn(in Input) Node {
	return route(in, NodeTaskLoop, NodeCompletion, r.MaxAttempts)
}
