package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending", TaskStatusPending, true},
		{"in_progress", TaskStatusInProgress, true},
		{"completed", TaskStatusCompleted, true},
		{"blocked", TaskStatusBlocked, true},
		{"failed", TaskStatusFailed, true},
		{"empty", TaskStatus(""), false},
		{"unknown", TaskStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskFiles(t *testing.T) {
	task := &Task{
		FilesToCreate: []string{"internal/api/server.go"},
		FilesToModify: []string{"go.mod", "cmd/main.go"},
	}

	files := task.Files()
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
}

func TestTaskOverlapsFiles(t *testing.T) {
	tests := []struct {
		name string
		a    *Task
		b    *Task
		want bool
	}{
		{
			name: "no overlap",
			a:    &Task{FilesToCreate: []string{"a.go"}},
			b:    &Task{FilesToCreate: []string{"b.go"}},
			want: false,
		},
		{
			name: "create vs modify overlap",
			a:    &Task{FilesToCreate: []string{"shared.go"}},
			b:    &Task{FilesToModify: []string{"shared.go"}},
			want: true,
		},
		{
			name: "both empty",
			a:    &Task{},
			b:    &Task{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.OverlapsFiles(tt.b); got != tt.want {
				t.Errorf("OverlapsFiles() = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.OverlapsFiles(tt.a); got != tt.want {
				t.Errorf("OverlapsFiles() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskActive(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskStatusPending}
	if !task.Active() {
		t.Error("expected new task to be active")
	}

	task.Superseded = true
	task.SupersededBy = []string{"t1-a", "t1-b"}
	if task.Active() {
		t.Error("expected superseded task to be inactive")
	}
}
