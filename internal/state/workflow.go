package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// SaveState upserts the workflow state for a run. This is the engine's
// single serialization point: a node's effects become visible only
// after this commit succeeds.
func (db *DB) SaveState(s *models.WorkflowState) error {
	s.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.Exec(`
		INSERT INTO runs (run_id, current_phase, current_node, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			current_phase = excluded.current_phase,
			current_node = excluded.current_node,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`, s.RunID, int(s.CurrentPhase), s.CurrentNode, string(payload), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save workflow state: %w", err)
	}
	return nil
}

// GetState returns the workflow state for a run, or nil if none exists.
func (db *DB) GetState(runID string) (*models.WorkflowState, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var payload string
	row := db.conn.QueryRow("SELECT state_json FROM runs WHERE run_id = ?", runID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get workflow state: %w", err)
	}
	return unmarshalState(payload)
}

// GetActiveRun returns the most recently updated run, or nil if the
// store is empty.
func (db *DB) GetActiveRun() (*models.WorkflowState, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var payload string
	row := db.conn.QueryRow("SELECT state_json FROM runs ORDER BY updated_at DESC LIMIT 1")
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active run: %w", err)
	}
	return unmarshalState(payload)
}

// unmarshalState decodes a stored workflow state.
func unmarshalState(payload string) (*models.WorkflowState, error) {
	var s models.WorkflowState
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("unmarshal workflow state: %w", err)
	}
	return &s, nil
}

// GetSummary builds the read-only status surface for a run.
func (db *DB) GetSummary(runID string) (*Summary, error) {
	s, err := db.GetState(runID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	tasks, err := db.GetTasks(runID)
	if err != nil {
		return nil, err
	}
	pending, err := db.PendingEscalation(runID)
	if err != nil {
		return nil, err
	}
	return buildSummary(s, tasks, pending), nil
}

// buildSummary assembles a Summary from its parts. Shared with the
// in-memory store so both backends report identically.
func buildSummary(s *models.WorkflowState, tasks []*models.Task, pending *models.EscalationRecord) *Summary {
	summary := &Summary{
		RunID:             s.RunID,
		Phase:             s.CurrentPhase.String(),
		PhaseStatus:       make(map[string]string, len(s.PhaseStatus)),
		PendingEscalation: pending,
		UpdatedAt:         s.UpdatedAt,
	}
	for phase, status := range s.PhaseStatus {
		summary.PhaseStatus[phase.String()] = string(status)
	}

	milestones := make(map[string]*models.MilestoneSummary)
	var names []string
	for _, t := range tasks {
		if !t.Active() {
			continue
		}
		summary.TasksTotal++
		switch t.Status {
		case models.TaskStatusCompleted:
			summary.TasksCompleted++
		case models.TaskStatusFailed:
			summary.TasksFailed++
		}

		if t.Milestone != "" {
			sum, ok := milestones[t.Milestone]
			if !ok {
				sum = &models.MilestoneSummary{Name: t.Milestone}
				milestones[t.Milestone] = sum
				names = append(names, t.Milestone)
			}
			sum.Total++
			if t.Status == models.TaskStatusCompleted {
				sum.Completed++
			}
		}
	}
	for _, name := range names {
		summary.Milestones = append(summary.Milestones, *milestones[name])
	}
	return summary
}
