// Package taskgraph owns the task dependency DAG, complexity scoring,
// and automatic decomposition of oversized tasks.
package taskgraph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/praxisworks/conductor/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph represents a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.Task
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// order preserves insertion order so selection is deterministic.
	order []string
}

// NewGraph creates a new empty dependency graph.
func NewGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*models.Task),
		edges: make(map[string][]string),
	}
}

// Build constructs the dependency graph from a slice of tasks.
// Returns an error if a cycle is detected or dependencies reference
// unknown tasks. Superseded tasks are skipped.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*models.Task, len(tasks))
	g.edges = make(map[string][]string, len(tasks))
	g.order = g.order[:0]

	for _, task := range tasks {
		if !task.Active() {
			continue
		}
		if _, dup := g.nodes[task.ID]; dup {
			return fmt.Errorf("duplicate task id %s", task.ID)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	for _, id := range g.order {
		for _, depID := range g.nodes[id].DependsOn {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on unknown task %s", id, depID)
			}
			g.edges[id] = append(g.edges[id], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked is the internal implementation that assumes the lock is held.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case 1:
				// Back edge, cycle found.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// TopologicalSort returns task IDs in an order where all dependencies
// come before the tasks that depend on them.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			visit(depID)
		}
		result = append(result, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Ready returns tasks that are pending and whose dependencies have all
// completed, in insertion order. These tasks are candidates for
// parallel execution.
func (g *DependencyGraph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for _, id := range g.order {
		task := g.nodes[id]
		if task.Status != models.TaskStatusPending {
			continue
		}
		if g.depsSatisfiedLocked(id) {
			ready = append(ready, task)
		}
	}
	return ready
}

// depsSatisfiedLocked reports whether every dependency of the task is completed.
func (g *DependencyGraph) depsSatisfiedLocked(id string) bool {
	for _, depID := range g.edges[id] {
		dep, exists := g.nodes[depID]
		if !exists || dep.Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// Deadlocked reports whether the graph can make no further progress:
// no task is selectable or in progress, yet incomplete tasks remain.
// Either every remaining task is blocked behind an unmet or failed
// dependency, or every remaining task has permanently failed.
func (g *DependencyGraph) Deadlocked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	incomplete := 0
	for _, id := range g.order {
		task := g.nodes[id]
		switch task.Status {
		case models.TaskStatusInProgress:
			// Work is still running; not a deadlock.
			return false
		case models.TaskStatusCompleted:
			continue
		case models.TaskStatusPending:
			if g.depsSatisfiedLocked(id) {
				return false
			}
			incomplete++
		default:
			incomplete++
		}
	}
	return incomplete > 0
}

// Done reports whether every active task has completed.
func (g *DependencyGraph) Done() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, id := range g.order {
		if g.nodes[id].Status != models.TaskStatusCompleted {
			return false
		}
	}
	return true
}

// Task returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) Task(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Tasks returns all tasks in insertion order.
func (g *DependencyGraph) Tasks() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(g.order))
	for _, id := range g.order {
		tasks = append(tasks, g.nodes[id])
	}
	return tasks
}

// Size returns the number of active tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for _, id := range g.order {
		for _, depID := range g.edges[id] {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}

// MarkDependentsBlocked marks every pending task that depends on the
// failed task as blocked, recording the reason. Returns the IDs blocked.
func (g *DependencyGraph) MarkDependentsBlocked(failedTaskID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var blocked []string
	var walk func(id string)
	walk = func(id string) {
		for _, depID := range g.order {
			for _, edge := range g.edges[depID] {
				if edge != id {
					continue
				}
				task := g.nodes[depID]
				if task.Status == models.TaskStatusPending {
					task.Status = models.TaskStatusBlocked
					task.BlockedReason = "dependency_failed:" + failedTaskID
					blocked = append(blocked, depID)
					walk(depID)
				}
			}
		}
	}
	walk(failedTaskID)
	return blocked
}
