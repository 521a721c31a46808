package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/praxisworks/conductor/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetState(t *testing.T) {
	db := openTestDB(t)

	s := models.NewWorkflowState("run-1", "spec.md")
	s.CurrentPhase = models.PhasePlanning
	s.CurrentNode = "planning"
	s.PhaseStatus[models.PhasePrerequisites] = models.PhaseStatusCompleted

	if err := db.SaveState(s); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	got, err := db.GetState("run-1")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetState() returned nil for saved run")
	}
	if got.CurrentPhase != models.PhasePlanning {
		t.Errorf("CurrentPhase = %v, want %v", got.CurrentPhase, models.PhasePlanning)
	}
	if got.CurrentNode != "planning" {
		t.Errorf("CurrentNode = %q, want %q", got.CurrentNode, "planning")
	}
	if got.PhaseStatus[models.PhasePrerequisites] != models.PhaseStatusCompleted {
		t.Errorf("prerequisites status = %v, want completed", got.PhaseStatus[models.PhasePrerequisites])
	}
}

func TestGetStateMissingRun(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetState("missing")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetState() = %+v, want nil for missing run", got)
	}
}

func TestSaveStateUpsert(t *testing.T) {
	db := openTestDB(t)

	s := models.NewWorkflowState("run-1", "spec.md")
	if err := db.SaveState(s); err != nil {
		t.Fatalf("first SaveState() error = %v", err)
	}

	s.CurrentPhase = models.PhaseImplementation
	s.CurrentNode = "task_loop"
	if err := db.SaveState(s); err != nil {
		t.Fatalf("second SaveState() error = %v", err)
	}

	got, err := db.GetState("run-1")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if got.CurrentNode != "task_loop" {
		t.Errorf("CurrentNode = %q, want task_loop after upsert", got.CurrentNode)
	}
}

func TestGetActiveRun(t *testing.T) {
	db := openTestDB(t)

	got, err := db.GetActiveRun()
	if err != nil {
		t.Fatalf("GetActiveRun() error = %v", err)
	}
	if got != nil {
		t.Fatal("GetActiveRun() on empty store should be nil")
	}

	older := models.NewWorkflowState("run-old", "spec.md")
	if err := db.SaveState(older); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	newer := models.NewWorkflowState("run-new", "spec.md")
	if err := db.SaveState(newer); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	got, err = db.GetActiveRun()
	if err != nil {
		t.Fatalf("GetActiveRun() error = %v", err)
	}
	if got == nil || got.RunID != "run-new" {
		t.Errorf("GetActiveRun() = %v, want run-new", got)
	}
}

func TestSaveTasksReplacesSet(t *testing.T) {
	db := openTestDB(t)

	first := []*models.Task{
		{ID: "t1", Title: "one", Status: models.TaskStatusPending},
		{ID: "t2", Title: "two", Status: models.TaskStatusPending},
	}
	if err := db.SaveTasks("run-1", first); err != nil {
		t.Fatalf("SaveTasks() error = %v", err)
	}

	second := []*models.Task{
		{ID: "t1", Title: "one", Status: models.TaskStatusCompleted},
		{ID: "t3", Title: "three", Status: models.TaskStatusPending},
	}
	if err := db.SaveTasks("run-1", second); err != nil {
		t.Fatalf("SaveTasks() replace error = %v", err)
	}

	got, err := db.GetTasks("run-1")
	if err != nil {
		t.Fatalf("GetTasks() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetTasks() returned %d tasks, want 2", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "t3" {
		t.Errorf("task order = [%s %s], want [t1 t3]", got[0].ID, got[1].ID)
	}
	if got[0].Status != models.TaskStatusCompleted {
		t.Errorf("t1 status = %v, want completed", got[0].Status)
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	db := openTestDB(t)

	s := models.NewWorkflowState("run-1", "spec.md")
	s.CurrentPhase = models.PhasePlanning
	cp := &Checkpoint{
		ID:    uuid.NewString(),
		RunID: "run-1",
		Name:  "pre_implementation",
		Phase: models.PhasePlanning,
		Snapshot: Snapshot{
			State: s,
			Tasks: []*models.Task{{ID: "t1", Status: models.TaskStatusPending}},
		},
	}
	if err := db.SaveCheckpoint(cp); err != nil {
		t.Fatalf("SaveCheckpoint() error = %v", err)
	}

	got, err := db.GetCheckpoint("run-1", "pre_implementation")
	if err != nil {
		t.Fatalf("GetCheckpoint() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetCheckpoint() returned nil for saved checkpoint")
	}
	if got.Phase != models.PhasePlanning {
		t.Errorf("Phase = %v, want planning", got.Phase)
	}
	if got.Snapshot.State == nil || got.Snapshot.State.RunID != "run-1" {
		t.Error("snapshot state did not round-trip")
	}
	if len(got.Snapshot.Tasks) != 1 || got.Snapshot.Tasks[0].ID != "t1" {
		t.Error("snapshot tasks did not round-trip")
	}

	missing, err := db.GetCheckpoint("run-1", "no_such_name")
	if err != nil {
		t.Fatalf("GetCheckpoint() error = %v", err)
	}
	if missing != nil {
		t.Error("GetCheckpoint() for unknown name should be nil")
	}

	list, err := db.ListCheckpoints("run-1")
	if err != nil {
		t.Fatalf("ListCheckpoints() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListCheckpoints() returned %d, want 1", len(list))
	}
}

func TestGetCheckpointNewestWins(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC()
	for i, id := range []string{"cp-old", "cp-new"} {
		cp := &Checkpoint{
			ID:        id,
			RunID:     "run-1",
			Name:      "pre_implementation",
			Phase:     models.PhasePlanning,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.SaveCheckpoint(cp); err != nil {
			t.Fatalf("SaveCheckpoint(%s) error = %v", id, err)
		}
	}

	got, err := db.GetCheckpoint("run-1", "pre_implementation")
	if err != nil {
		t.Fatalf("GetCheckpoint() error = %v", err)
	}
	if got.ID != "cp-new" {
		t.Errorf("GetCheckpoint() = %s, want cp-new", got.ID)
	}
}

func TestEscalationLifecycle(t *testing.T) {
	db := openTestDB(t)

	rec := &models.EscalationRecord{
		ID:         uuid.NewString(),
		RunID:      "run-1",
		ResumeNode: "task_loop",
		Reason:     "attempts_exhausted",
		TaskID:     "t1",
		LastError:  "tests failed",
		Attempts:   3,
		Question:   "Implementation failed three times. How should we proceed?",
		Options:    []string{"retry", "skip", "abort"},
	}
	if err := db.CreateEscalation(rec); err != nil {
		t.Fatalf("CreateEscalation() error = %v", err)
	}

	pending, err := db.PendingEscalation("run-1")
	if err != nil {
		t.Fatalf("PendingEscalation() error = %v", err)
	}
	if pending == nil {
		t.Fatal("PendingEscalation() returned nil for open escalation")
	}
	if pending.TaskID != "t1" || pending.Attempts != 3 {
		t.Errorf("pending = %+v, want task t1 with 3 attempts", pending)
	}
	if len(pending.Options) != 3 {
		t.Errorf("Options = %v, want 3 entries", pending.Options)
	}

	if err := db.ResolveEscalation(rec.ID, "skip"); err != nil {
		t.Fatalf("ResolveEscalation() error = %v", err)
	}

	resolved, err := db.GetEscalation(rec.ID)
	if err != nil {
		t.Fatalf("GetEscalation() error = %v", err)
	}
	if resolved.Pending() {
		t.Error("escalation still pending after resolve")
	}
	if resolved.Response != "skip" {
		t.Errorf("Response = %q, want skip", resolved.Response)
	}

	pending, err = db.PendingEscalation("run-1")
	if err != nil {
		t.Fatalf("PendingEscalation() error = %v", err)
	}
	if pending != nil {
		t.Error("PendingEscalation() should be nil after resolve")
	}

	if err := db.ResolveEscalation(rec.ID, "again"); err == nil {
		t.Error("resolving twice should error")
	}
}

func TestGetSummary(t *testing.T) {
	db := openTestDB(t)

	s := models.NewWorkflowState("run-1", "spec.md")
	s.CurrentPhase = models.PhaseImplementation
	if err := db.SaveState(s); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	tasks := []*models.Task{
		{ID: "t1", Milestone: "m1", Status: models.TaskStatusCompleted},
		{ID: "t2", Milestone: "m1", Status: models.TaskStatusPending},
		{ID: "t3", Milestone: "m2", Status: models.TaskStatusFailed},
		{ID: "t4", Milestone: "m2", Status: models.TaskStatusPending, Superseded: true},
	}
	if err := db.SaveTasks("run-1", tasks); err != nil {
		t.Fatalf("SaveTasks() error = %v", err)
	}

	sum, err := db.GetSummary("run-1")
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if sum.TasksTotal != 3 {
		t.Errorf("TasksTotal = %d, want 3 (superseded excluded)", sum.TasksTotal)
	}
	if sum.TasksCompleted != 1 || sum.TasksFailed != 1 {
		t.Errorf("completed/failed = %d/%d, want 1/1", sum.TasksCompleted, sum.TasksFailed)
	}
	if len(sum.Milestones) != 2 {
		t.Fatalf("Milestones = %d, want 2", len(sum.Milestones))
	}
	if sum.Milestones[0].Name != "m1" || sum.Milestones[0].Completed != 1 {
		t.Errorf("milestone m1 = %+v, want 1 completed", sum.Milestones[0])
	}

	if _, err := db.GetSummary("missing"); err == nil {
		t.Error("GetSummary() for missing run should error")
	}
}
