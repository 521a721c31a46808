package worker

import (
	"fmt"
	"sync"

	"github.com/praxisworks/conductor/internal/git"
)

// fakeGit is an in-memory git.Runner for coordinator tests.
type fakeGit struct {
	mu sync.Mutex

	worktrees map[string]string // path -> branch
	branches  map[string]bool
	merged    []string

	// behavior knobs
	dirtyDirs    map[string]bool     // dirs reporting uncommitted changes
	changedFiles map[string][]string // branch -> files changed vs run branch
	mergeErr     map[string]error    // branch -> merge failure
	conflicted   bool
	aborts       int
	commits      []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		worktrees:    make(map[string]string),
		branches:     make(map[string]bool),
		dirtyDirs:    make(map[string]bool),
		changedFiles: make(map[string][]string),
		mergeErr:     make(map[string]error),
	}
}

var _ git.Runner = (*fakeGit)(nil)

func (f *fakeGit) InDir(dir string) git.Runner {
	return &fakeInDir{parent: f, dir: dir}
}

// fakeInDir delegates to the parent so state stays shared.
type fakeInDir struct {
	parent *fakeGit
	dir    string
}

var _ git.Runner = (*fakeInDir)(nil)

func (f *fakeInDir) InDir(dir string) git.Runner { return &fakeInDir{parent: f.parent, dir: dir} }
func (f *fakeInDir) CurrentBranch() (string, error) {
	f.parent.mu.Lock()
	defer f.parent.mu.Unlock()
	return f.parent.worktrees[f.dir], nil
}
func (f *fakeInDir) BranchExists(name string) (bool, error) { return f.parent.BranchExists(name) }
func (f *fakeInDir) DeleteBranch(name string) error         { return f.parent.DeleteBranch(name) }
func (f *fakeInDir) WorktreeAdd(path, branch string) error  { return f.parent.WorktreeAdd(path, branch) }
func (f *fakeInDir) WorktreeRemove(path string) error       { return f.parent.WorktreeRemove(path) }
func (f *fakeInDir) WorktreeList() ([]string, error)        { return f.parent.WorktreeList() }
func (f *fakeInDir) WorktreePrune() error                   { return f.parent.WorktreePrune() }
func (f *fakeInDir) Merge(branch string) error              { return f.parent.Merge(branch) }
func (f *fakeInDir) MergeNoFFMessage(branch, message string) error {
	return f.parent.MergeNoFFMessage(branch, message)
}
func (f *fakeInDir) MergeAbort() error             { return f.parent.MergeAbort() }
func (f *fakeInDir) HasConflicts() (bool, error)   { return f.parent.HasConflicts() }
func (f *fakeInDir) Status() (string, error)       { return "", nil }
func (f *fakeInDir) HasChanges() (bool, error) {
	f.parent.mu.Lock()
	defer f.parent.mu.Unlock()
	return f.parent.dirtyDirs[f.dir], nil
}
func (f *fakeInDir) ChangedFilesRelative(branch, relativeTo string) ([]string, error) {
	return f.parent.ChangedFilesRelative(branch, relativeTo)
}
func (f *fakeInDir) AddAll() error { return nil }
func (f *fakeInDir) Commit(message string) error {
	f.parent.mu.Lock()
	defer f.parent.mu.Unlock()
	f.parent.commits = append(f.parent.commits, message)
	f.parent.dirtyDirs[f.dir] = false
	return nil
}

func (f *fakeGit) CurrentBranch() (string, error) { return "conductor/run", nil }

func (f *fakeGit) BranchExists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[name], nil
}

func (f *fakeGit) DeleteBranch(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.branches, name)
	return nil
}

func (f *fakeGit) WorktreeAdd(path, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.worktrees[path]; exists {
		return fmt.Errorf("worktree %s already exists", path)
	}
	f.worktrees[path] = branch
	f.branches[branch] = true
	return nil
}

func (f *fakeGit) WorktreeRemove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.worktrees[path]; !exists {
		return fmt.Errorf("worktree %s not found", path)
	}
	delete(f.worktrees, path)
	return nil
}

func (f *fakeGit) WorktreeList() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for path := range f.worktrees {
		paths = append(paths, path)
	}
	return paths, nil
}

func (f *fakeGit) WorktreePrune() error { return nil }

func (f *fakeGit) Merge(branch string) error { return f.MergeNoFFMessage(branch, "") }

func (f *fakeGit) MergeNoFFMessage(branch, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mergeErr[branch]; err != nil {
		return err
	}
	if err := f.mergeErr["*"]; err != nil {
		return err
	}
	f.merged = append(f.merged, branch)
	return nil
}

func (f *fakeGit) MergeAbort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborts++
	return nil
}

func (f *fakeGit) HasConflicts() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conflicted, nil
}

func (f *fakeGit) Status() (string, error)     { return "", nil }
func (f *fakeGit) HasChanges() (bool, error)   { return false, nil }
func (f *fakeGit) AddAll() error               { return nil }
func (f *fakeGit) Commit(message string) error { return nil }

func (f *fakeGit) ChangedFilesRelative(branch, relativeTo string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if files, ok := f.changedFiles[branch]; ok {
		return files, nil
	}
	// Task branches carry a random suffix; "*" seeds every branch.
	return f.changedFiles["*"], nil
}

func (f *fakeGit) mergedBranches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.merged...)
}
