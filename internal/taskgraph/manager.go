package taskgraph

import (
	"fmt"
	"sort"
	"time"

	"github.com/praxisworks/conductor/pkg/models"
)

// Manager maintains the task DAG and keeps it executable: it scores
// tasks, decomposes the ones above the split threshold, selects
// parallel batches, and detects deadlock.
type Manager struct {
	graph *DependencyGraph
	// tasks holds every task ever created, superseded ones included.
	tasks map[string]*models.Task
	// order preserves creation order for deterministic iteration.
	order []string
	// splitThreshold is the complexity score that triggers auto-split.
	splitThreshold float64
}

// NewManager creates a Manager with the given split threshold.
// A zero or negative threshold falls back to the default.
func NewManager(splitThreshold float64) *Manager {
	if splitThreshold <= 0 {
		splitThreshold = DefaultSplitThreshold
	}
	return &Manager{
		graph:          NewGraph(),
		tasks:          make(map[string]*models.Task),
		splitThreshold: splitThreshold,
	}
}

// Load ingests a task set, scores every task, auto-splits the ones at
// or above the threshold, and builds the dependency graph. Returns an
// error on cycles, duplicate IDs, or unknown dependencies.
func (m *Manager) Load(tasks []*models.Task) error {
	m.tasks = make(map[string]*models.Task, len(tasks))
	m.order = m.order[:0]
	for _, t := range tasks {
		if t.Status == "" {
			t.Status = models.TaskStatusPending
		}
		m.add(t)
	}

	if err := m.rebuild(); err != nil {
		return err
	}
	return m.autoSplit()
}

// add registers a task, scoring it if needed.
func (m *Manager) add(t *models.Task) {
	if t.ComplexityScore == 0 {
		t.ComplexityScore = Score(t).Total
	}
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
}

// rebuild reconstructs the graph from the active tasks.
func (m *Manager) rebuild() error {
	return m.graph.Build(m.activeTasks())
}

// activeTasks returns non-superseded tasks in creation order.
func (m *Manager) activeTasks() []*models.Task {
	active := make([]*models.Task, 0, len(m.order))
	for _, id := range m.order {
		if t := m.tasks[id]; t.Active() {
			active = append(active, t)
		}
	}
	return active
}

// autoSplit decomposes every pending task whose score meets the
// threshold, repeating until the graph is stable. Splits can only lower
// scores, so the loop terminates; a child that still exceeds the
// threshold and cannot split further is left in place for monitoring.
func (m *Manager) autoSplit() error {
	for {
		split := false
		for _, id := range append([]string(nil), m.order...) {
			task := m.tasks[id]
			if !task.Active() || task.Status != models.TaskStatusPending {
				continue
			}
			score := Score(task)
			if score.Total < m.splitThreshold {
				continue
			}

			children, err := Split(task, score)
			if err != nil {
				// Unsplittable oversized task: leave it for the escalation
				// path to monitor rather than failing the whole load.
				continue
			}
			for _, child := range children {
				m.add(child)
			}
			m.rewireDependents(task.ID, children)
			split = true
		}
		if !split {
			break
		}
		if err := m.rebuild(); err != nil {
			return fmt.Errorf("rebuild after split: %w", err)
		}
	}
	return nil
}

// rewireDependents replaces dependency edges on a superseded parent
// with edges on its children, keeping dependent tasks resolvable
// after a split. Depending on every child is safe: chained split
// strategies only add redundant edges, never cycles.
func (m *Manager) rewireDependents(parentID string, children []*models.Task) {
	childIDs := make([]string, len(children))
	for i, c := range children {
		childIDs[i] = c.ID
	}
	for _, id := range m.order {
		t := m.tasks[id]
		if !t.Active() {
			continue
		}
		for i, dep := range t.DependsOn {
			if dep != parentID {
				continue
			}
			deps := make([]string, 0, len(t.DependsOn)-1+len(childIDs))
			deps = append(deps, t.DependsOn[:i]...)
			deps = append(deps, childIDs...)
			deps = append(deps, t.DependsOn[i+1:]...)
			t.DependsOn = deps
			break
		}
	}
}

// NextBatch returns up to limit selectable tasks that can run in
// parallel: all pending with satisfied dependencies, no dependency
// edges between them (guaranteed by readiness), and no overlapping
// declared file sets. Tasks that overlap an earlier selection are
// deferred to a later batch, serializing them.
func (m *Manager) NextBatch(limit int) []*models.Task {
	if limit <= 0 {
		return nil
	}
	ready := m.graph.Ready()

	var batch []*models.Task
	for _, candidate := range ready {
		if len(batch) >= limit {
			break
		}
		overlaps := false
		for _, selected := range batch {
			if candidate.OverlapsFiles(selected) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			batch = append(batch, candidate)
		}
	}
	return batch
}

// Deadlocked reports whether no progress is possible: nothing
// selectable or running, yet incomplete tasks remain.
func (m *Manager) Deadlocked() bool {
	return m.graph.Deadlocked()
}

// Done reports whether every active task completed.
func (m *Manager) Done() bool {
	return m.graph.Done()
}

// Task returns a task by ID, superseded tasks included.
func (m *Manager) Task(id string) *models.Task {
	return m.tasks[id]
}

// Tasks returns every task in creation order, superseded ones included.
func (m *Manager) Tasks() []*models.Task {
	tasks := make([]*models.Task, 0, len(m.order))
	for _, id := range m.order {
		tasks = append(tasks, m.tasks[id])
	}
	return tasks
}

// ActiveTasks returns the tasks that participate in scheduling.
func (m *Manager) ActiveTasks() []*models.Task {
	return m.activeTasks()
}

// MarkCompleted transitions a task to completed.
func (m *Manager) MarkCompleted(id string) error {
	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	task.Status = models.TaskStatusCompleted
	now := time.Now().UTC()
	task.CompletedAt = &now
	return nil
}

// MarkFailed transitions a task to failed, records the error, and
// blocks all transitive dependents.
func (m *Manager) MarkFailed(id, errMsg string) error {
	task, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	task.Status = models.TaskStatusFailed
	task.Error = errMsg
	m.graph.MarkDependentsBlocked(id)
	return nil
}

// Milestones summarizes per-milestone completion for progress reporting.
func (m *Manager) Milestones() []models.MilestoneSummary {
	totals := make(map[string]*models.MilestoneSummary)
	var names []string
	for _, task := range m.activeTasks() {
		name := task.Milestone
		if name == "" {
			name = "(unassigned)"
		}
		sum, ok := totals[name]
		if !ok {
			sum = &models.MilestoneSummary{Name: name}
			totals[name] = sum
			names = append(names, name)
		}
		sum.Total++
		if task.Status == models.TaskStatusCompleted {
			sum.Completed++
		}
	}

	sort.Strings(names)
	result := make([]models.MilestoneSummary, 0, len(names))
	for _, name := range names {
		result = append(result, *totals[name])
	}
	return result
}
