// Package engine executes the delivery workflow as a state machine:
// run one node, commit the state, ask the node's router where to go
// next, repeat. Routing is pure; all business branching lives in the
// routers and the nodes, never in the loop itself.
package engine

import "github.com/praxisworks/conductor/pkg/models"

// Node names a state of the workflow machine.
type Node string

const (
	// NodePrerequisites checks the environment and spec file.
	NodePrerequisites Node = "prerequisites"
	// NodePlanning produces the task plan from the spec.
	NodePlanning Node = "planning"
	// NodeValidateA is the first plan reviewer (fan-out entry; the
	// engine runs both validators concurrently from here).
	NodeValidateA Node = "validate_a"
	// NodeValidateB is the second plan reviewer.
	NodeValidateB Node = "validate_b"
	// NodeValidationFanIn joins the two plan verdicts and gates them.
	NodeValidationFanIn Node = "validation_fan_in"
	// NodeTaskLoop selects and executes ready task batches.
	NodeTaskLoop Node = "task_loop"
	// NodeReviewA is the first code reviewer (fan-out entry).
	NodeReviewA Node = "review_a"
	// NodeReviewB is the second code reviewer.
	NodeReviewB Node = "review_b"
	// NodeVerificationFanIn joins the two code verdicts and gates them.
	NodeVerificationFanIn Node = "verification_fan_in"
	// NodeCompletion finalizes the run.
	NodeCompletion Node = "completion"
	// NodeHumanEscalation suspends the run for human input.
	NodeHumanEscalation Node = "human_escalation"
	// NodeEnd is the terminal state.
	NodeEnd Node = "end"
)

var nodePhases = map[Node]models.Phase{
	NodePrerequisites:     models.PhasePrerequisites,
	NodePlanning:          models.PhasePlanning,
	NodeValidateA:         models.PhaseValidation,
	NodeValidateB:         models.PhaseValidation,
	NodeValidationFanIn:   models.PhaseValidation,
	NodeTaskLoop:          models.PhaseImplementation,
	NodeReviewA:           models.PhaseVerification,
	NodeReviewB:           models.PhaseVerification,
	NodeVerificationFanIn: models.PhaseVerification,
	NodeCompletion:        models.PhaseCompletion,
}

// Valid returns true if the node is a known value.
func (n Node) Valid() bool {
	switch n {
	case NodeHumanEscalation, NodeEnd:
		return true
	default:
		_, ok := nodePhases[n]
		return ok
	}
}

// Phase returns the phase a node belongs to. The escalation and end
// nodes have no phase of their own and report the completion phase.
func (n Node) Phase() (models.Phase, bool) {
	p, ok := nodePhases[n]
	return p, ok
}
