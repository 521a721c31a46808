package engine

import (
	"encoding/json"
	"testing"

	"github.com/praxisworks/conductor/pkg/models"
)

func routerState(phase models.Phase, decision models.Decision, attempts int) *models.WorkflowState {
	s := models.NewWorkflowState("run-1", "spec.md")
	s.CurrentPhase = phase
	s.NextDecision = decision
	s.IterationCount[phase] = attempts
	return s
}

func TestRoutePrecedence(t *testing.T) {
	r := Routers{MaxAttempts: 3}

	tests := []struct {
		name     string
		node     Node
		decision models.Decision
		attempts int
		want     Node
	}{
		{"abort wins", NodePlanning, models.DecisionAbort, 0, NodeEnd},
		{"escalate next", NodePlanning, models.DecisionEscalate, 0, NodeHumanEscalation},
		{"retry with attempts left", NodePlanning, models.DecisionRetry, 1, NodePlanning},
		{"retry exhausted forces escalation", NodePlanning, models.DecisionRetry, 3, NodeHumanEscalation},
		{"exhaustion forces escalation regardless of decision", NodePlanning, models.DecisionContinue, 3, NodeHumanEscalation},
		{"continue follows forward edge", NodePlanning, models.DecisionContinue, 0, NodeValidateA},
		{"prerequisites forward", NodePrerequisites, models.DecisionContinue, 0, NodePlanning},
		{"completion forward", NodeCompletion, models.DecisionContinue, 0, NodeEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase, _ := tt.node.Phase()
			in := Input{State: routerState(phase, tt.decision, tt.attempts)}
			if got := r.For(tt.node)(in); got != tt.want {
				t.Errorf("route = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationFanInRetryTargetsPlanning(t *testing.T) {
	r := Routers{MaxAttempts: 3}

	// A failed plan gate leaves a retry decision; the fan-in router
	// must re-enter planning, not the fan-in itself.
	in := Input{State: routerState(models.PhaseValidation, models.DecisionRetry, 1)}
	if got := r.For(NodeValidationFanIn)(in); got != NodePlanning {
		t.Errorf("validation fan-in retry = %v, want planning", got)
	}

	in = Input{State: routerState(models.PhaseValidation, models.DecisionContinue, 0)}
	if got := r.For(NodeValidationFanIn)(in); got != NodeTaskLoop {
		t.Errorf("validation fan-in continue = %v, want task_loop", got)
	}
}

func TestVerificationFanInRetryTargetsTaskLoop(t *testing.T) {
	r := Routers{MaxAttempts: 3}

	in := Input{State: routerState(models.PhaseVerification, models.DecisionRetry, 1)}
	if got := r.For(NodeVerificationFanIn)(in); got != NodeTaskLoop {
		t.Errorf("verification fan-in retry = %v, want task_loop", got)
	}

	in = Input{State: routerState(models.PhaseVerification, models.DecisionContinue, 0)}
	if got := r.For(NodeVerificationFanIn)(in); got != NodeCompletion {
		t.Errorf("verification fan-in continue = %v, want completion", got)
	}
}

func TestTaskLoopRouter(t *testing.T) {
	r := Routers{MaxAttempts: 3}

	tests := []struct {
		name       string
		decision   models.Decision
		attempts   int
		deadlocked bool
		done       bool
		want       Node
	}{
		{"deadlock escalates", models.DecisionContinue, 0, true, false, NodeHumanEscalation},
		{"done moves to review", models.DecisionContinue, 0, false, true, NodeReviewA},
		{"work remains loops", models.DecisionContinue, 0, false, false, NodeTaskLoop},
		{"abort still wins", models.DecisionAbort, 0, true, false, NodeEnd},
		{"escalate still wins", models.DecisionEscalate, 0, false, true, NodeHumanEscalation},
		{"retry exhausted escalates", models.DecisionRetry, 3, false, false, NodeHumanEscalation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				State:      routerState(models.PhaseImplementation, tt.decision, tt.attempts),
				Deadlocked: tt.deadlocked,
				TasksDone:  tt.done,
			}
			if got := r.For(NodeTaskLoop)(in); got != tt.want {
				t.Errorf("route = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoutersArePure(t *testing.T) {
	r := Routers{MaxAttempts: 3}
	in := Input{State: routerState(models.PhaseImplementation, models.DecisionRetry, 1), Deadlocked: false}

	before, err := json.Marshal(in.State)
	if err != nil {
		t.Fatal(err)
	}

	first := r.For(NodeTaskLoop)(in)
	second := r.For(NodeTaskLoop)(in)
	if first != second {
		t.Errorf("same input produced %v then %v", first, second)
	}

	after, err := json.Marshal(in.State)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("router mutated its input state")
	}
}

func TestNodePhases(t *testing.T) {
	if p, ok := NodeTaskLoop.Phase(); !ok || p != models.PhaseImplementation {
		t.Errorf("task_loop phase = %v", p)
	}
	if _, ok := NodeEnd.Phase(); ok {
		t.Error("end should have no phase")
	}
	if !NodeHumanEscalation.Valid() {
		t.Error("human_escalation should be a valid node")
	}
	if Node("nonsense").Valid() {
		t.Error("unknown node should not be valid")
	}
}
