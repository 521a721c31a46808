package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// SaveCheckpoint writes an immutable snapshot at a phase boundary.
func (db *DB) SaveCheckpoint(cp *Checkpoint) error {
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(cp.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal checkpoint snapshot: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.Exec(`
		INSERT INTO checkpoints (id, run_id, name, phase, snapshot_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cp.ID, cp.RunID, cp.Name, int(cp.Phase), string(payload), formatTime(cp.CreatedAt))
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// GetCheckpoint returns the newest checkpoint with the given name for a
// run, or nil if none exists.
func (db *DB) GetCheckpoint(runID, name string) (*Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id, run_id, name, phase, snapshot_json, created_at
		FROM checkpoints
		WHERE run_id = ? AND name = ?
		ORDER BY created_at DESC LIMIT 1
	`, runID, name)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

// ListCheckpoints returns every checkpoint for a run, oldest first.
func (db *DB) ListCheckpoints(runID string) ([]*Checkpoint, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, run_id, name, phase, snapshot_json, created_at
		FROM checkpoints
		WHERE run_id = ?
		ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return checkpoints, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCheckpoint decodes one checkpoint row.
func scanCheckpoint(row rowScanner) (*Checkpoint, error) {
	var cp Checkpoint
	var phase int
	var payload, createdAt string

	if err := row.Scan(&cp.ID, &cp.RunID, &cp.Name, &phase, &payload, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &cp.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint snapshot: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint time: %w", err)
	}
	cp.Phase = models.Phase(phase)
	cp.CreatedAt = t
	return &cp, nil
}
