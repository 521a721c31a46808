// Package worker executes task batches in isolated git worktrees,
// bounded by a configured worker count, merging successful work back
// and discarding failures.
package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/praxisworks/conductor/internal/git"
)

// branchPrefix namespaces every task branch so orphan cleanup can
// identify leftovers from crashed runs.
const branchPrefix = "conductor/"

// Worktree is one isolated working copy assigned to a task.
type Worktree struct {
	// TaskID is the task the worktree was created for.
	TaskID string
	// Path is the filesystem location of the working copy.
	Path string
	// Branch is the task branch checked out in the worktree.
	Branch string
}

// WorktreeManager creates and tears down task worktrees under one
// base directory.
type WorktreeManager struct {
	mu       sync.Mutex
	baseDir  string
	repoPath string
	git      git.Runner
}

// NewWorktreeManager creates a manager rooted at baseDir, defaulting
// to .conductor/worktrees inside the repository.
func NewWorktreeManager(baseDir, repoPath string, runner git.Runner) (*WorktreeManager, error) {
	if baseDir == "" {
		baseDir = filepath.Join(repoPath, ".conductor", "worktrees")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create worktree base directory: %w", err)
	}
	if runner == nil {
		runner = git.NewRunner(repoPath)
	}
	return &WorktreeManager{
		baseDir:  baseDir,
		repoPath: repoPath,
		git:      runner,
	}, nil
}

// Create makes a fresh worktree and branch for a task.
func (m *WorktreeManager) Create(taskID string) (*Worktree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	short := uuid.NewString()[:8]
	name := fmt.Sprintf("task-%s-%s", sanitize(taskID), short)
	branch := branchPrefix + name
	path := filepath.Join(m.baseDir, name)

	if err := m.git.WorktreeAdd(path, branch); err != nil {
		return nil, fmt.Errorf("create worktree for task %s: %w", taskID, err)
	}
	return &Worktree{TaskID: taskID, Path: path, Branch: branch}, nil
}

// Remove tears down a worktree and its branch. Removal failures after
// a successful merge are reported but leave the repository usable.
func (m *WorktreeManager) Remove(wt *Worktree) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.WorktreeRemove(wt.Path); err != nil {
		// Fall back to removing the directory and pruning.
		if rmErr := os.RemoveAll(wt.Path); rmErr != nil {
			return fmt.Errorf("remove worktree %s: %w", wt.Path, err)
		}
		_ = m.git.WorktreePrune()
	}
	if err := m.git.DeleteBranch(wt.Branch); err != nil {
		return fmt.Errorf("delete branch %s: %w", wt.Branch, err)
	}
	return nil
}

// CleanupOrphans removes worktrees left behind by a crashed run. Any
// worktree under the base directory is an orphan at startup since no
// batch is in flight yet.
func (m *WorktreeManager) CleanupOrphans() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.git.WorktreePrune(); err != nil {
		return 0, fmt.Errorf("prune worktrees: %w", err)
	}
	paths, err := m.git.WorktreeList()
	if err != nil {
		return 0, fmt.Errorf("list worktrees: %w", err)
	}

	removed := 0
	for _, path := range paths {
		if !strings.HasPrefix(path, m.baseDir) {
			continue
		}
		if err := m.git.WorktreeRemove(path); err != nil {
			if rmErr := os.RemoveAll(path); rmErr != nil {
				continue
			}
		}
		branch := branchPrefix + filepath.Base(path)
		if exists, _ := m.git.BranchExists(branch); exists {
			_ = m.git.DeleteBranch(branch)
		}
		removed++
	}
	return removed, nil
}

// sanitize makes a task ID safe for branch and directory names.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, id)
}
