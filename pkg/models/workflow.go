package models

import "time"

// Phase identifies a stage of the delivery workflow. Phases advance
// monotonically except on explicit rollback.
type Phase int

const (
	// PhasePrerequisites checks the environment and the spec file.
	PhasePrerequisites Phase = iota
	// PhasePlanning turns the spec into a task plan.
	PhasePlanning
	// PhaseValidation has two reviewers validate the plan.
	PhaseValidation
	// PhaseImplementation executes the task loop.
	PhaseImplementation
	// PhaseVerification has two reviewers verify the implementation.
	PhaseVerification
	// PhaseCompletion finalizes the run.
	PhaseCompletion
)

var phaseNames = map[Phase]string{
	PhasePrerequisites:  "prerequisites",
	PhasePlanning:       "planning",
	PhaseValidation:     "validation",
	PhaseImplementation: "implementation",
	PhaseVerification:   "verification",
	PhaseCompletion:     "completion",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Valid returns true if the phase is a known value.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// AllPhases returns every phase in workflow order.
func AllPhases() []Phase {
	return []Phase{
		PhasePrerequisites, PhasePlanning, PhaseValidation,
		PhaseImplementation, PhaseVerification, PhaseCompletion,
	}
}

// PhaseStatus represents the state of a single phase.
type PhaseStatus string

const (
	// PhaseStatusPending indicates the phase has not started.
	PhaseStatusPending PhaseStatus = "pending"
	// PhaseStatusInProgress indicates the phase is running.
	PhaseStatusInProgress PhaseStatus = "in_progress"
	// PhaseStatusCompleted indicates the phase finished successfully.
	PhaseStatusCompleted PhaseStatus = "completed"
	// PhaseStatusFailed indicates the phase failed.
	PhaseStatusFailed PhaseStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s PhaseStatus) Valid() bool {
	switch s {
	case PhaseStatusPending, PhaseStatusInProgress, PhaseStatusCompleted,
		PhaseStatusFailed:
		return true
	default:
		return false
	}
}

// Decision is the routing directive a node leaves behind for the next
// router call. Routers check it exhaustively; there is no string
// comparison anywhere in routing.
type Decision string

const (
	// DecisionContinue follows the phase's default forward edge.
	DecisionContinue Decision = "continue"
	// DecisionRetry re-enters the current node if attempts remain.
	DecisionRetry Decision = "retry"
	// DecisionEscalate suspends the run for human input.
	DecisionEscalate Decision = "escalate"
	// DecisionAbort ends the run at the last committed state.
	DecisionAbort Decision = "abort"
)

// Valid returns true if the decision is a known value.
func (d Decision) Valid() bool {
	switch d {
	case DecisionContinue, DecisionRetry, DecisionEscalate, DecisionAbort:
		return true
	default:
		return false
	}
}

// WorkflowError is a normalized failure captured during node execution.
// Node-local errors never reach routing directly; they are appended
// here and summarized into NextDecision.
type WorkflowError struct {
	// Node is the node that was executing when the error occurred.
	Node string `json:"node"`
	// Phase is the phase the run was in.
	Phase Phase `json:"phase"`
	// Class is the error taxonomy class (transient, structural, ...).
	Class string `json:"class"`
	// Message is the error text.
	Message string `json:"message"`
	// TaskID references the task involved, if any.
	TaskID string `json:"task_id,omitempty"`
	// OccurredAt is when the error was recorded.
	OccurredAt time.Time `json:"occurred_at"`
}

// Interrupt is the suspend payload attached to a state while a run
// waits on a pending escalation.
type Interrupt struct {
	// EscalationID references the durable EscalationRecord.
	EscalationID string `json:"escalation_id"`
	// ResumeNode is the node the engine re-enters after resolution.
	ResumeNode string `json:"resume_node"`
	// Question is the free-text question for the human, if any.
	Question string `json:"question,omitempty"`
	// Options are the offered resolution choices.
	Options []string `json:"options,omitempty"`
}

// WorkflowState is the single mutable record of a run. The engine is
// its only writer; routers and observers read snapshots of it.
type WorkflowState struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// SpecPath is the specification file the run was started from.
	SpecPath string `json:"spec_path"`
	// CurrentPhase is the phase the run is in.
	CurrentPhase Phase `json:"current_phase"`
	// CurrentNode is the node the engine will execute next.
	CurrentNode string `json:"current_node"`
	// PhaseStatus tracks the status of every phase.
	PhaseStatus map[Phase]PhaseStatus `json:"phase_status"`
	// NextDecision is the routing directive left by the last node.
	NextDecision Decision `json:"next_decision"`
	// Errors is the ordered list of normalized failures.
	Errors []WorkflowError `json:"errors,omitempty"`
	// IterationCount tracks per-phase retry attempts.
	IterationCount map[Phase]int `json:"iteration_count"`
	// PendingInterrupt is set while the run waits on an escalation.
	PendingInterrupt *Interrupt `json:"pending_interrupt,omitempty"`
	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the state was last committed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkflowState creates the initial state for a run.
func NewWorkflowState(runID, specPath string) *WorkflowState {
	status := make(map[Phase]PhaseStatus, len(AllPhases()))
	for _, p := range AllPhases() {
		status[p] = PhaseStatusPending
	}
	now := time.Now().UTC()
	return &WorkflowState{
		RunID:          runID,
		SpecPath:       specPath,
		CurrentPhase:   PhasePrerequisites,
		CurrentNode:    "prerequisites",
		PhaseStatus:    status,
		NextDecision:   DecisionContinue,
		IterationCount: make(map[Phase]int),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy. Routers receive clones so a buggy caller
// cannot mutate the committed state.
func (s *WorkflowState) Clone() *WorkflowState {
	clone := *s

	clone.PhaseStatus = make(map[Phase]PhaseStatus, len(s.PhaseStatus))
	for p, status := range s.PhaseStatus {
		clone.PhaseStatus[p] = status
	}
	clone.IterationCount = make(map[Phase]int, len(s.IterationCount))
	for p, n := range s.IterationCount {
		clone.IterationCount[p] = n
	}
	clone.Errors = make([]WorkflowError, len(s.Errors))
	copy(clone.Errors, s.Errors)

	if s.PendingInterrupt != nil {
		interrupt := *s.PendingInterrupt
		interrupt.Options = append([]string(nil), s.PendingInterrupt.Options...)
		clone.PendingInterrupt = &interrupt
	}
	return &clone
}

// RecordError appends a normalized failure, stamping its time if the
// caller left it zero.
func (s *WorkflowState) RecordError(we WorkflowError) {
	if we.OccurredAt.IsZero() {
		we.OccurredAt = time.Now().UTC()
	}
	s.Errors = append(s.Errors, we)
}

// LastError returns the most recent recorded failure, or nil.
func (s *WorkflowState) LastError() *WorkflowError {
	if len(s.Errors) == 0 {
		return nil
	}
	return &s.Errors[len(s.Errors)-1]
}
