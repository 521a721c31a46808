package escalate

import (
	"errors"
	"testing"

	"github.com/praxisworks/conductor/internal/state"
	"github.com/praxisworks/conductor/pkg/models"
)

func TestDecide(t *testing.T) {
	m := NewManager(state.NewMemStore(), 3, 3)

	tests := []struct {
		name     string
		class    Class
		attempts int
		want     models.Decision
	}{
		{"transient with attempts left", ClassTransient, 1, models.DecisionRetry},
		{"transient exhausted", ClassTransient, 3, models.DecisionEscalate},
		{"structural with attempts left", ClassStructural, 2, models.DecisionRetry},
		{"structural exhausted", ClassStructural, 3, models.DecisionEscalate},
		{"boundary never retries", ClassBoundary, 0, models.DecisionEscalate},
		{"deadlock always escalates", ClassDeadlock, 0, models.DecisionEscalate},
		{"ambiguity always escalates", ClassAmbiguity, 0, models.DecisionEscalate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Decide(tt.class, tt.attempts); got != tt.want {
				t.Errorf("Decide(%v, %d) = %v, want %v", tt.class, tt.attempts, got, tt.want)
			}
		})
	}
}

func TestSuspendCreatesDurableRecord(t *testing.T) {
	store := state.NewMemStore()
	m := NewManager(store, 3, 3)

	s := models.NewWorkflowState("run-1", "spec.md")
	rec, err := m.Suspend(s, Escalation{
		Reason:     "implementation attempts exhausted",
		ResumeNode: "task_loop",
		TaskID:     "t1",
		LastError:  "tests failed",
		Attempts:   3,
	})
	if err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}

	if s.PendingInterrupt == nil {
		t.Fatal("Suspend() did not attach an interrupt")
	}
	if s.PendingInterrupt.EscalationID != rec.ID {
		t.Error("interrupt does not reference the escalation record")
	}
	if len(rec.Options) == 0 {
		t.Error("escalation with no explicit options should offer defaults")
	}

	stored, err := store.PendingEscalation("run-1")
	if err != nil {
		t.Fatalf("PendingEscalation() error = %v", err)
	}
	if stored == nil || stored.TaskID != "t1" || stored.Attempts != 3 {
		t.Errorf("stored record = %+v, want task t1 with 3 attempts", stored)
	}
}

func TestResolve(t *testing.T) {
	store := state.NewMemStore()
	m := NewManager(store, 3, 3)

	s := models.NewWorkflowState("run-1", "spec.md")
	rec, err := m.Suspend(s, Escalation{Reason: "stuck", ResumeNode: "planning"})
	if err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}

	resolved, err := m.Resolve(rec.ID, "retry")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Pending() {
		t.Error("record still pending after Resolve()")
	}
	if resolved.Response != "retry" {
		t.Errorf("Response = %q, want retry", resolved.Response)
	}

	if _, err := m.Resolve(rec.ID, "retry"); err == nil {
		t.Error("resolving twice should error")
	}
}

func TestCheckpointAndRollback(t *testing.T) {
	store := state.NewMemStore()
	m := NewManager(store, 3, 3)

	s := models.NewWorkflowState("run-1", "spec.md")
	s.CurrentPhase = models.PhasePlanning
	s.CurrentNode = "planning"
	tasks := []*models.Task{{ID: "t1", Status: models.TaskStatusPending}}
	if err := m.Checkpoint("pre_implementation", s, tasks); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}

	// Advance the run past the checkpoint.
	s.CurrentPhase = models.PhaseImplementation
	s.CurrentNode = "task_loop"
	tasks[0].Status = models.TaskStatusFailed
	if err := store.SaveState(s); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	if err := store.SaveTasks("run-1", tasks); err != nil {
		t.Fatalf("SaveTasks() error = %v", err)
	}

	restored, err := m.Rollback("run-1", "pre_implementation")
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if restored.CurrentPhase != models.PhasePlanning {
		t.Errorf("restored phase = %v, want planning", restored.CurrentPhase)
	}

	storedTasks, err := store.GetTasks("run-1")
	if err != nil {
		t.Fatalf("GetTasks() error = %v", err)
	}
	if storedTasks[0].Status != models.TaskStatusPending {
		t.Errorf("restored task status = %v, want pending", storedTasks[0].Status)
	}

	storedState, err := store.GetState("run-1")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if storedState.CurrentNode != "planning" {
		t.Errorf("committed node = %q, want planning", storedState.CurrentNode)
	}
}

func TestRollbackUnknownCheckpoint(t *testing.T) {
	m := NewManager(state.NewMemStore(), 3, 3)

	_, err := m.Rollback("run-1", "no_such_checkpoint")
	if !errors.Is(err, ErrCheckpointNotFound) {
		t.Errorf("Rollback() error = %v, want ErrCheckpointNotFound", err)
	}
}
