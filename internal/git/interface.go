// Package git runs git operations for worktree-isolated task
// execution. The worker coordinator depends on the Runner contract;
// tests substitute a fake.
package git

// BranchOperations covers the branch lifecycle of a task worktree.
type BranchOperations interface {
	// CurrentBranch returns the name of the current branch.
	CurrentBranch() (string, error)
	// BranchExists returns true if the branch exists.
	BranchExists(name string) (bool, error)
	// DeleteBranch force-deletes the specified branch.
	DeleteBranch(name string) error
}

// WorktreeOperations covers worktree creation, listing, and teardown.
type WorktreeOperations interface {
	// WorktreeAdd creates a worktree at path on a new branch.
	WorktreeAdd(path, branch string) error
	// WorktreeRemove force-removes the worktree at path.
	WorktreeRemove(path string) error
	// WorktreeList returns the paths of all worktrees.
	WorktreeList() ([]string, error)
	// WorktreePrune removes stale worktree bookkeeping.
	WorktreePrune() error
}

// MergeOperations covers merging a task branch back into the run branch.
type MergeOperations interface {
	// Merge merges the branch into the current branch.
	Merge(branch string) error
	// MergeNoFFMessage merges with --no-ff and a custom message.
	MergeNoFFMessage(branch, message string) error
	// MergeAbort aborts an in-progress merge.
	MergeAbort() error
	// HasConflicts returns true if the tree has unmerged paths.
	HasConflicts() (bool, error)
}

// StatusOperations covers the read side used for scope enforcement.
type StatusOperations interface {
	// Status returns git status --porcelain output.
	Status() (string, error)
	// HasChanges returns true if there are uncommitted changes.
	HasChanges() (bool, error)
	// ChangedFilesRelative returns files changed on a branch relative
	// to another, using the triple-dot diff.
	ChangedFilesRelative(branch, relativeTo string) ([]string, error)
}

// CommitOperations covers staging and committing inside a worktree.
type CommitOperations interface {
	// AddAll stages every change in the worktree.
	AddAll() error
	// Commit creates a commit with the given message.
	Commit(message string) error
}

// Runner is the complete git contract. Consumers should prefer the
// focused interfaces when possible.
type Runner interface {
	BranchOperations
	WorktreeOperations
	MergeOperations
	StatusOperations
	CommitOperations
	// InDir returns a Runner rooted at a different directory, used to
	// operate inside a worktree.
	InDir(dir string) Runner
}
