package escalate

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/praxisworks/conductor/internal/state"
	"github.com/praxisworks/conductor/pkg/models"
)

const (
	// DefaultMaxTransientRetries bounds immediate retries of
	// timeout-like failures at the agent boundary.
	DefaultMaxTransientRetries = 3
	// DefaultMaxStructuralRetries bounds re-runs of a node after
	// failed criteria, builds, or tests.
	DefaultMaxStructuralRetries = 3
)

// DefaultOptions are offered when an escalation has no more specific
// choices of its own.
var DefaultOptions = []string{"retry", "skip", "abort"}

// Store is the slice of persistence the manager needs.
type Store interface {
	state.WorkflowStore
	state.TaskStore
	state.CheckpointStore
	state.EscalationStore
}

// Manager translates classified failures into routing decisions and
// owns the escalation, checkpoint, and rollback machinery.
type Manager struct {
	store                Store
	maxTransientRetries  int
	maxStructuralRetries int
}

// NewManager creates a manager with the given retry bounds, using the
// defaults for non-positive values.
func NewManager(store Store, maxTransient, maxStructural int) *Manager {
	if maxTransient <= 0 {
		maxTransient = DefaultMaxTransientRetries
	}
	if maxStructural <= 0 {
		maxStructural = DefaultMaxStructuralRetries
	}
	return &Manager{
		store:                store,
		maxTransientRetries:  maxTransient,
		maxStructuralRetries: maxStructural,
	}
}

// MaxStructuralRetries returns the configured structural retry bound.
func (m *Manager) MaxStructuralRetries() int { return m.maxStructuralRetries }

// Decide maps a failure class and the attempts already made to a
// routing decision. Boundary violations, deadlocks, and ambiguity
// always escalate; retryable classes escalate once their bound is
// exhausted.
func (m *Manager) Decide(class Class, attempts int) models.Decision {
	switch class {
	case ClassTransient:
		if attempts < m.maxTransientRetries {
			return models.DecisionRetry
		}
		return models.DecisionEscalate
	case ClassStructural:
		if attempts < m.maxStructuralRetries {
			return models.DecisionRetry
		}
		return models.DecisionEscalate
	case ClassBoundary, ClassDeadlock, ClassAmbiguity:
		return models.DecisionEscalate
	default:
		return models.DecisionEscalate
	}
}

// Escalation describes a suspension the engine is about to perform.
type Escalation struct {
	// Reason is the human-readable summary.
	Reason string
	// ResumeNode is where the engine re-enters after resolution.
	ResumeNode string
	// TaskID references the task involved, if any.
	TaskID string
	// LastError is the most recent failure message.
	LastError string
	// Attempts is the number of attempts made before suspending.
	Attempts int
	// Question is a specific clarification question, if any.
	Question string
	// Options are the offered choices; DefaultOptions when empty.
	Options []string
}

// Suspend writes a durable EscalationRecord and attaches the interrupt
// payload to the state. The caller commits the state afterward; a
// crash between the two leaves a pending record the next invocation
// will find.
func (m *Manager) Suspend(s *models.WorkflowState, esc Escalation) (*models.EscalationRecord, error) {
	options := esc.Options
	if len(options) == 0 {
		options = DefaultOptions
	}
	rec := &models.EscalationRecord{
		ID:         uuid.NewString(),
		RunID:      s.RunID,
		ResumeNode: esc.ResumeNode,
		Reason:     esc.Reason,
		TaskID:     esc.TaskID,
		LastError:  esc.LastError,
		Attempts:   esc.Attempts,
		Question:   esc.Question,
		Options:    append([]string(nil), options...),
	}
	if err := m.store.CreateEscalation(rec); err != nil {
		return nil, fmt.Errorf("persist escalation: %w", err)
	}

	s.PendingInterrupt = &models.Interrupt{
		EscalationID: rec.ID,
		ResumeNode:   rec.ResumeNode,
		Question:     rec.Question,
		Options:      append([]string(nil), rec.Options...),
	}
	return rec, nil
}

// Resolve records the human response on a pending escalation and
// returns the updated record.
func (m *Manager) Resolve(id, response string) (*models.EscalationRecord, error) {
	if err := m.store.ResolveEscalation(id, response); err != nil {
		return nil, err
	}
	rec, err := m.store.GetEscalation(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("escalation %s vanished after resolve", id)
	}
	return rec, nil
}

// Checkpoint captures the state and task set under a phase-boundary
// name. Written before risky transitions so rollback has a target.
func (m *Manager) Checkpoint(name string, s *models.WorkflowState, tasks []*models.Task) error {
	cp := &state.Checkpoint{
		ID:    uuid.NewString(),
		RunID: s.RunID,
		Name:  name,
		Phase: s.CurrentPhase,
		Snapshot: state.Snapshot{
			State: s.Clone(),
			Tasks: tasks,
		},
	}
	if err := m.store.SaveCheckpoint(cp); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", name, err)
	}
	return nil
}

// ErrCheckpointNotFound is returned by Rollback for an unknown name.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// Rollback restores the workflow state and task set from the newest
// checkpoint with the given name, discarding all later history.
func (m *Manager) Rollback(runID, name string) (*models.WorkflowState, error) {
	cp, err := m.store.GetCheckpoint(runID, name)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %s for run %s", ErrCheckpointNotFound, name, runID)
	}

	restored := cp.Snapshot.State.Clone()
	restored.PendingInterrupt = nil
	if err := m.store.SaveTasks(runID, cp.Snapshot.Tasks); err != nil {
		return nil, fmt.Errorf("restore tasks: %w", err)
	}
	if err := m.store.SaveState(restored); err != nil {
		return nil, fmt.Errorf("restore state: %w", err)
	}
	return restored, nil
}
