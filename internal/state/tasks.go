package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/praxisworks/conductor/pkg/models"
)

// SaveTasks replaces the stored task set for a run atomically.
func (db *DB) SaveTasks(runID string, tasks []*models.Task) error {
	return db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM tasks WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear tasks: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO tasks (run_id, id, status, milestone, task_json, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare task insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range tasks {
			payload, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("marshal task %s: %w", t.ID, err)
			}
			if _, err := stmt.Exec(runID, t.ID, string(t.Status), t.Milestone, string(payload), i); err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// GetTasks returns the stored task set for a run in creation order.
func (db *DB) GetTasks(runID string) ([]*models.Task, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT task_json FROM tasks WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var t models.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}
