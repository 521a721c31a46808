package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// stateWatcher turns writes to the state database into bubbletea
// messages. SQLite rewrites the db file and its journal on commit, so
// watching the containing directory catches every state transition.
type stateWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newStateWatcher(dbPath string) *stateWatcher {
	return &stateWatcher{path: dbPath}
}

// Start opens the watcher and returns the command that waits for the
// first change. It returns nil when watching is unavailable; the
// dashboard then falls back to its refresh timer.
func (w *stateWatcher) Start() tea.Cmd {
	if w.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil
	}
	w.watcher = watcher
	return w.Wait()
}

// Wait blocks until the database file changes, then emits a
// stateChangedMsg. The caller re-issues it after handling each change.
func (w *stateWatcher) Wait() tea.Cmd {
	if w.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) == filepath.Base(w.path) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					return stateChangedMsg{}
				}
			case _, ok := <-w.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// Close releases the underlying watcher.
func (w *stateWatcher) Close() {
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}
