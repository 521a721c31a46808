package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/internal/git"
	"github.com/praxisworks/conductor/pkg/models"
)

// DefaultWorkerCount bounds how many tasks run concurrently.
const DefaultWorkerCount = 3

// TaskFunc performs the actual work for one task inside its worktree,
// typically an implementer agent call. It must confine its writes to
// the worktree path.
type TaskFunc func(ctx context.Context, task *models.Task, worktreePath string) error

// TaskResult is the outcome of one task in a batch.
type TaskResult struct {
	// TaskID identifies the task.
	TaskID string
	// Err is nil when the task's work was merged back successfully.
	Err error
	// ChangedFiles lists the files the task actually touched.
	ChangedFiles []string
}

// Coordinator runs batches of independent tasks in parallel worktrees.
// Merges back into the run branch are serialized; worktree teardown is
// guaranteed before the batch returns.
type Coordinator struct {
	manager   *WorktreeManager
	git       git.Runner
	workers   int
	runBranch string

	// mergeMu serializes merge-back so concurrent workers never race
	// on the run branch.
	mergeMu sync.Mutex
}

// NewCoordinator creates a coordinator merging into runBranch with the
// given concurrency bound, defaulting to DefaultWorkerCount.
func NewCoordinator(manager *WorktreeManager, runner git.Runner, runBranch string, workers int) *Coordinator {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	return &Coordinator{
		manager:   manager,
		git:       runner,
		workers:   workers,
		runBranch: runBranch,
	}
}

// ExecuteBatch runs every task of the batch, at most workers at a
// time. Batches with overlapping declared file sets are rejected
// outright; the scheduler must serialize those instead.
func (c *Coordinator) ExecuteBatch(ctx context.Context, tasks []*models.Task, fn TaskFunc) ([]TaskResult, error) {
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			if tasks[i].OverlapsFiles(tasks[j]) {
				return nil, fmt.Errorf("tasks %s and %s declare overlapping files; batch rejected",
					tasks[i].ID, tasks[j].ID)
			}
		}
	}

	results := make([]TaskResult, len(tasks))
	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task *models.Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = c.executeOne(ctx, task, fn)
		}(i, task)
	}
	wg.Wait()

	return results, nil
}

// executeOne runs a single task in its own worktree. The worktree is
// always removed, whether the task succeeded, failed, or panicked its
// merge; failures discard the branch without touching the run branch.
func (c *Coordinator) executeOne(ctx context.Context, task *models.Task, fn TaskFunc) TaskResult {
	result := TaskResult{TaskID: task.ID}

	wt, err := c.manager.Create(task.ID)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		if err := c.manager.Remove(wt); err != nil && result.Err == nil {
			result.Err = err
		}
	}()

	if err := fn(ctx, task, wt.Path); err != nil {
		result.Err = err
		return result
	}

	changed, err := c.commitWork(wt, task)
	if err != nil {
		result.Err = err
		return result
	}
	result.ChangedFiles = changed

	if err := c.enforceScope(task, changed); err != nil {
		result.Err = err
		return result
	}

	result.Err = c.mergeBack(wt, task)
	return result
}

// commitWork stages and commits the task's changes in its worktree and
// returns the list of files the task actually touched.
func (c *Coordinator) commitWork(wt *Worktree, task *models.Task) ([]string, error) {
	wtGit := c.git.InDir(wt.Path)
	hasChanges, err := wtGit.HasChanges()
	if err != nil {
		return nil, err
	}
	if hasChanges {
		if err := wtGit.AddAll(); err != nil {
			return nil, err
		}
		if err := wtGit.Commit(fmt.Sprintf("task %s: %s", task.ID, task.Title)); err != nil {
			return nil, err
		}
	}
	return c.git.ChangedFilesRelative(wt.Branch, c.runBranch)
}

// enforceScope verifies the task stayed inside its declared file set.
// A write outside scope is a boundary violation: fatal to this task,
// never retried. Tasks with no declared files are unconstrained.
func (c *Coordinator) enforceScope(task *models.Task, changed []string) error {
	declared := task.Files()
	if len(declared) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(declared))
	for _, f := range declared {
		allowed[f] = true
	}

	var violations []string
	for _, f := range changed {
		if !allowed[f] {
			violations = append(violations, f)
		}
	}
	if len(violations) > 0 {
		return escalate.Boundary(fmt.Errorf(
			"task %s wrote outside its declared scope: %s",
			task.ID, strings.Join(violations, ", ")))
	}
	return nil
}

// mergeBack merges the task branch into the run branch. Merges are
// serialized; a conflict aborts the merge and fails the task while
// leaving the run branch at its last good commit.
func (c *Coordinator) mergeBack(wt *Worktree, task *models.Task) error {
	c.mergeMu.Lock()
	defer c.mergeMu.Unlock()

	msg := fmt.Sprintf("merge task %s: %s", task.ID, task.Title)
	if err := c.git.MergeNoFFMessage(wt.Branch, msg); err != nil {
		if conflicted, cErr := c.git.HasConflicts(); cErr == nil && conflicted {
			_ = c.git.MergeAbort()
		}
		return escalate.Structural(fmt.Errorf("merge task %s: %w", task.ID, err))
	}
	return nil
}
