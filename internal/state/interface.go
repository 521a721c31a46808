// Package state provides durable persistence for workflow runs. The
// engine, task graph manager, and escalation manager depend only on the
// StateStore contract; the SQLite implementation is swappable.
package state

import (
	"io"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// Snapshot is the unit of checkpointing: the workflow state plus the
// complete task set at one point in time.
type Snapshot struct {
	// State is the workflow state at checkpoint time.
	State *models.WorkflowState `json:"state"`
	// Tasks is the full task set, superseded tasks included.
	Tasks []*models.Task `json:"tasks"`
}

// Checkpoint is an immutable snapshot stored at a phase boundary,
// keyed by a phase name and creation time. Rollback restores from it.
type Checkpoint struct {
	// ID uniquely identifies the checkpoint.
	ID string `json:"id"`
	// RunID is the run the checkpoint belongs to.
	RunID string `json:"run_id"`
	// Name is the phase-boundary label (e.g. "pre-implementation").
	Name string `json:"name"`
	// Phase is the phase at checkpoint time.
	Phase models.Phase `json:"phase"`
	// Snapshot is the captured state and task set.
	Snapshot Snapshot `json:"snapshot"`
	// CreatedAt is when the checkpoint was written.
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the read-only workflow status surface consumed by the
// status command and dashboard. Consumers never mutate it.
type Summary struct {
	// RunID identifies the summarized run.
	RunID string `json:"run_id"`
	// Phase is the current phase name.
	Phase string `json:"phase"`
	// PhaseStatus maps phase names to their statuses.
	PhaseStatus map[string]string `json:"phase_status"`
	// TasksTotal is the number of active tasks.
	TasksTotal int `json:"tasks_total"`
	// TasksCompleted is the number of completed active tasks.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed is the number of failed active tasks.
	TasksFailed int `json:"tasks_failed"`
	// Milestones summarizes per-milestone progress.
	Milestones []models.MilestoneSummary `json:"milestones,omitempty"`
	// PendingEscalation is the open escalation, if the run is suspended.
	PendingEscalation *models.EscalationRecord `json:"pending_escalation,omitempty"`
	// UpdatedAt is when the state was last committed.
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowStore handles workflow-state persistence. Each call is an
// atomic read-then-write; SaveState is the engine's single
// serialization point.
type WorkflowStore interface {
	SaveState(s *models.WorkflowState) error
	GetState(runID string) (*models.WorkflowState, error)
	// GetActiveRun returns the most recently updated run, or nil if the
	// store is empty.
	GetActiveRun() (*models.WorkflowState, error)
}

// TaskStore handles task-set persistence, scoped by run.
type TaskStore interface {
	SaveTasks(runID string, tasks []*models.Task) error
	GetTasks(runID string) ([]*models.Task, error)
}

// CheckpointStore handles checkpoint read/write.
type CheckpointStore interface {
	SaveCheckpoint(cp *Checkpoint) error
	// GetCheckpoint returns the newest checkpoint with the given name.
	GetCheckpoint(runID, name string) (*Checkpoint, error)
	ListCheckpoints(runID string) ([]*Checkpoint, error)
}

// EscalationStore handles escalation-record persistence.
type EscalationStore interface {
	CreateEscalation(rec *models.EscalationRecord) error
	GetEscalation(id string) (*models.EscalationRecord, error)
	// PendingEscalation returns the open escalation for a run, or nil.
	PendingEscalation(runID string) (*models.EscalationRecord, error)
	ResolveEscalation(id, response string) error
}

// Migrator handles schema migrations. Separated so clients can depend
// on migration functionality alone.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// StateStore is the full persistence contract. It composes focused
// sub-interfaces so components can depend on only what they use.
type StateStore interface {
	io.Closer
	Migrator
	WorkflowStore
	TaskStore
	CheckpointStore
	EscalationStore

	// GetSummary builds the read-only status surface for a run.
	GetSummary(runID string) (*Summary, error)
}

// Compile-time verification that both implementations satisfy the contract.
var (
	_ StateStore = (*DB)(nil)
	_ StateStore = (*MemStore)(nil)
)
