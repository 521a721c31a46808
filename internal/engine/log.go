package engine

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/praxisworks/conductor/internal/escalate"
	"github.com/praxisworks/conductor/pkg/models"
)

// RunLog is the per-run append-only audit log of node transitions and
// decisions. A nil RunLog discards everything, so callers never guard.
type RunLog struct {
	logger *log.Logger
	file   *os.File
}

// OpenRunLog creates or appends the audit log for a run, stored next
// to the state database.
func OpenRunLog(dir, runID string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s.log", runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &RunLog{
		logger: log.New(f, "", log.LstdFlags|log.LUTC),
		file:   f,
	}, nil
}

// Close closes the underlying file.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *RunLog) printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Transition records one routing step.
func (l *RunLog) Transition(runID string, from, to Node, decision models.Decision) {
	l.printf("run=%s node=%s decision=%s next=%s", runID, from, decision, to)
}

// Failure records a normalized node failure.
func (l *RunLog) Failure(runID string, node Node, class escalate.Class, err error) {
	l.printf("run=%s node=%s class=%s error=%q", runID, node, class, err)
}

// Checkpoint records a checkpoint write.
func (l *RunLog) Checkpoint(runID, name string) {
	l.printf("run=%s checkpoint=%s", runID, name)
}

// Escalation records a suspension.
func (l *RunLog) Escalation(runID string, rec *models.EscalationRecord) {
	l.printf("run=%s escalation=%s reason=%q task=%s attempts=%d",
		runID, rec.ID, rec.Reason, rec.TaskID, rec.Attempts)
}

// End records the terminal transition.
func (l *RunLog) End(runID string) {
	l.printf("run=%s node=end", runID)
}
