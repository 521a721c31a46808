package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// CreateEscalation persists a new escalation record.
func (db *DB) CreateEscalation(rec *models.EscalationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	options, err := json.Marshal(rec.Options)
	if err != nil {
		return fmt.Errorf("marshal escalation options: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.Exec(`
		INSERT INTO escalations
			(id, run_id, resume_node, reason, task_id, last_error, attempts,
			 question, options_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.RunID, rec.ResumeNode, rec.Reason, rec.TaskID, rec.LastError,
		rec.Attempts, rec.Question, string(options), formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("create escalation: %w", err)
	}
	return nil
}

// GetEscalation returns an escalation by ID, or nil if not found.
func (db *DB) GetEscalation(id string) (*models.EscalationRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(escalationSelect+" WHERE id = ?", id)
	rec, err := scanEscalation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// PendingEscalation returns the open escalation for a run, or nil.
func (db *DB) PendingEscalation(runID string) (*models.EscalationRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(escalationSelect+`
		WHERE run_id = ? AND resolved_at IS NULL
		ORDER BY created_at DESC LIMIT 1
	`, runID)
	rec, err := scanEscalation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ResolveEscalation records the human response and closes the record.
func (db *DB) ResolveEscalation(id, response string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Exec(`
		UPDATE escalations SET response = ?, resolved_at = ?
		WHERE id = ? AND resolved_at IS NULL
	`, response, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve escalation rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %s not found or already resolved", id)
	}
	return nil
}

const escalationSelect = `
	SELECT id, run_id, resume_node, reason, task_id, last_error, attempts,
	       question, options_json, response, created_at, resolved_at
	FROM escalations`

// scanEscalation decodes one escalation row.
func scanEscalation(row rowScanner) (*models.EscalationRecord, error) {
	var rec models.EscalationRecord
	var taskID, lastError, question, options, response sql.NullString
	var createdAt string
	var resolvedAt sql.NullString

	err := row.Scan(&rec.ID, &rec.RunID, &rec.ResumeNode, &rec.Reason, &taskID,
		&lastError, &rec.Attempts, &question, &options, &response, &createdAt, &resolvedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan escalation: %w", err)
	}

	rec.TaskID = taskID.String
	rec.LastError = lastError.String
	rec.Question = question.String
	rec.Response = response.String
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &rec.Options); err != nil {
			return nil, fmt.Errorf("unmarshal escalation options: %w", err)
		}
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse escalation time: %w", err)
	}
	rec.CreatedAt = t
	rec.ResolvedAt = parseNullableTime(resolvedAt)
	return &rec, nil
}
