package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusBlocked, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Task represents a unit of implementation work produced from a plan.
// Tasks are never deleted: auto-split deactivates a task and replaces it
// with child tasks that inherit its dependency edges.
type Task struct {
	// ID is the unique, stable identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Milestone is the reporting-only grouping this task belongs to.
	Milestone string `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	// Title is the short description of the task.
	Title string `json:"title" yaml:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// AcceptanceCriteria defines the ordered criteria for completion.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	// FilesToCreate lists paths this task will create.
	FilesToCreate []string `json:"files_to_create,omitempty" yaml:"files_to_create,omitempty"`
	// FilesToModify lists paths this task will modify.
	FilesToModify []string `json:"files_to_modify,omitempty" yaml:"files_to_modify,omitempty"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"status"`
	// Attempts is the number of implementation attempts made.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	// ComplexityScore is the computed 0-13 composite score.
	ComplexityScore float64 `json:"complexity_score" yaml:"complexity_score"`
	// Superseded is true once the task was replaced by split children.
	Superseded bool `json:"superseded,omitempty" yaml:"superseded,omitempty"`
	// SupersededBy lists the child task IDs that replaced this task.
	SupersededBy []string `json:"superseded_by,omitempty" yaml:"superseded_by,omitempty"`
	// BlockedReason explains why the task is blocked, if it is.
	BlockedReason string `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty"`
	// Error contains the last error message if the task failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// CompletedAt is when the task was completed, if applicable.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Files returns the union of declared create and modify paths.
func (t *Task) Files() []string {
	files := make([]string, 0, len(t.FilesToCreate)+len(t.FilesToModify))
	files = append(files, t.FilesToCreate...)
	files = append(files, t.FilesToModify...)
	return files
}

// Active reports whether the task still participates in scheduling.
// Superseded tasks remain in the store for history but are never selected.
func (t *Task) Active() bool {
	return !t.Superseded
}

// OverlapsFiles reports whether two tasks declare any common file path.
// Tasks with overlapping declared file sets must never share a parallel batch.
func (t *Task) OverlapsFiles(other *Task) bool {
	seen := make(map[string]bool, len(t.FilesToCreate)+len(t.FilesToModify))
	for _, f := range t.Files() {
		seen[f] = true
	}
	for _, f := range other.Files() {
		if seen[f] {
			return true
		}
	}
	return false
}

// MilestoneSummary reports task progress for one milestone. Milestones
// carry no execution semantics.
type MilestoneSummary struct {
	// Name is the milestone name.
	Name string `json:"name"`
	// Total is the number of active tasks in the milestone.
	Total int `json:"total"`
	// Completed is the number of completed tasks in the milestone.
	Completed int `json:"completed"`
}

// Plan is the structured output of the planning phase.
type Plan struct {
	// Summary is the planner's one-paragraph description of the approach.
	Summary string `json:"summary" yaml:"summary"`
	// Milestones lists the milestone names in delivery order.
	Milestones []string `json:"milestones,omitempty" yaml:"milestones,omitempty"`
	// Tasks is the full task list.
	Tasks []*Task `json:"tasks" yaml:"tasks"`
}
