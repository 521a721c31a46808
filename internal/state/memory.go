package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// MemStore is an in-memory StateStore. It backs engine tests and any
// environment where durability is not wanted; it round-trips values
// through JSON so it behaves like the SQLite store.
type MemStore struct {
	mu          sync.RWMutex
	states      map[string]string
	tasks       map[string][]string
	checkpoints []*Checkpoint
	escalations map[string]*models.EscalationRecord
	// order tracks run update recency for GetActiveRun.
	updated map[string]time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		states:      make(map[string]string),
		tasks:       make(map[string][]string),
		escalations: make(map[string]*models.EscalationRecord),
		updated:     make(map[string]time.Time),
	}
}

// Close implements io.Closer; a MemStore holds no resources.
func (m *MemStore) Close() error { return nil }

// Migrate is a no-op for the in-memory store.
func (m *MemStore) Migrate() error { return nil }

// SaveState stores a JSON copy of the workflow state.
func (m *MemStore) SaveState(s *models.WorkflowState) error {
	s.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal workflow state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.RunID] = string(payload)
	m.updated[s.RunID] = s.UpdatedAt
	return nil
}

// GetState returns a copy of the stored state, or nil.
func (m *MemStore) GetState(runID string) (*models.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.states[runID]
	if !ok {
		return nil, nil
	}
	return unmarshalState(payload)
}

// GetActiveRun returns the most recently saved run, or nil.
func (m *MemStore) GetActiveRun() (*models.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var bestID string
	var bestTime time.Time
	for id, at := range m.updated {
		if at.After(bestTime) {
			bestID, bestTime = id, at
		}
	}
	if bestID == "" {
		return nil, nil
	}
	return unmarshalState(m.states[bestID])
}

// SaveTasks stores JSON copies of the task set.
func (m *MemStore) SaveTasks(runID string, tasks []*models.Task) error {
	encoded := make([]string, 0, len(tasks))
	for _, t := range tasks {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal task %s: %w", t.ID, err)
		}
		encoded = append(encoded, string(payload))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[runID] = encoded
	return nil
}

// GetTasks returns copies of the stored task set.
func (m *MemStore) GetTasks(runID string) ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	encoded := m.tasks[runID]
	tasks := make([]*models.Task, 0, len(encoded))
	for _, payload := range encoded {
		var t models.Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks, nil
}

// SaveCheckpoint appends an immutable checkpoint copy.
func (m *MemStore) SaveCheckpoint(cp *Checkpoint) error {
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	// Deep copy via JSON so later mutations cannot touch the snapshot.
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	var copied Checkpoint
	if err := json.Unmarshal(payload, &copied); err != nil {
		return fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, &copied)
	return nil
}

// GetCheckpoint returns the newest checkpoint with the given name.
func (m *MemStore) GetCheckpoint(runID, name string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Checkpoint
	for _, cp := range m.checkpoints {
		if cp.RunID != runID || cp.Name != name {
			continue
		}
		if best == nil || cp.CreatedAt.After(best.CreatedAt) {
			best = cp
		}
	}
	return best, nil
}

// ListCheckpoints returns every checkpoint for a run, oldest first.
func (m *MemStore) ListCheckpoints(runID string) ([]*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Checkpoint
	for _, cp := range m.checkpoints {
		if cp.RunID == runID {
			result = append(result, cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// CreateEscalation stores a new escalation record.
func (m *MemStore) CreateEscalation(rec *models.EscalationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.escalations[rec.ID]; exists {
		return fmt.Errorf("escalation %s already exists", rec.ID)
	}
	copied := *rec
	copied.Options = append([]string(nil), rec.Options...)
	m.escalations[rec.ID] = &copied
	return nil
}

// GetEscalation returns an escalation by ID, or nil.
func (m *MemStore) GetEscalation(id string) (*models.EscalationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.escalations[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// PendingEscalation returns the open escalation for a run, or nil.
func (m *MemStore) PendingEscalation(runID string) (*models.EscalationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.EscalationRecord
	for _, rec := range m.escalations {
		if rec.RunID != runID || !rec.Pending() {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

// ResolveEscalation records the response and closes the record.
func (m *MemStore) ResolveEscalation(id, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.escalations[id]
	if !ok || !rec.Pending() {
		return fmt.Errorf("escalation %s not found or already resolved", id)
	}
	now := time.Now().UTC()
	rec.Response = response
	rec.ResolvedAt = &now
	return nil
}

// GetSummary builds the read-only status surface for a run.
func (m *MemStore) GetSummary(runID string) (*Summary, error) {
	s, err := m.GetState(runID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	tasks, err := m.GetTasks(runID)
	if err != nil {
		return nil, err
	}
	pending, err := m.PendingEscalation(runID)
	if err != nil {
		return nil, err
	}
	return buildSummary(s, tasks, pending), nil
}
