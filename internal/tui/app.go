// Package tui provides the read-only status dashboard for conductor.
// It renders the phase pipeline, task progress, and any pending
// escalation for a run, reloading when the state database changes.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/praxisworks/conductor/internal/state"
)

// SummaryLoader is the read side of the state store the dashboard
// depends on.
type SummaryLoader interface {
	GetSummary(runID string) (*state.Summary, error)
}

// summaryMsg carries a reloaded summary into the model.
type summaryMsg struct {
	summary *state.Summary
	err     error
}

// stateChangedMsg signals that the state database was written.
type stateChangedMsg struct{}

// tickMsg drives the periodic refresh fallback.
type tickMsg time.Time

// App is the bubbletea model for the status dashboard.
type App struct {
	loader  SummaryLoader
	runID   string
	refresh time.Duration

	watcher *stateWatcher
	spinner spinner.Model

	summary *state.Summary
	err     error

	width    int
	quitting bool
}

// New creates a dashboard for the given run. dbPath may be empty, in
// which case the dashboard refreshes on a timer only.
func New(loader SummaryLoader, runID, dbPath string, refresh time.Duration) *App {
	if refresh <= 0 {
		refresh = 250 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &App{
		loader:  loader,
		runID:   runID,
		refresh: refresh,
		watcher: newStateWatcher(dbPath),
		spinner: sp,
		width:   80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, a.load(), a.tick()}
	if cmd := a.watcher.Start(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.quitting = true
			a.watcher.Close()
			return a, tea.Quit
		case "r":
			return a, a.load()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case summaryMsg:
		a.summary, a.err = msg.summary, msg.err

	case stateChangedMsg:
		return a, tea.Batch(a.load(), a.watcher.Wait())

	case tickMsg:
		return a, tea.Batch(a.load(), a.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// load fetches the current summary from the store.
func (a *App) load() tea.Cmd {
	return func() tea.Msg {
		summary, err := a.loader.GetSummary(a.runID)
		return summaryMsg{summary: summary, err: err}
	}
}

// tick schedules the periodic refresh fallback.
func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
