package models

import "time"

// EscalationRecord captures the state of a run at the moment of
// suspension: why it stopped, what a human can do about it, and the
// response once one answers. It is durable so a resumed process can
// pick the run back up.
type EscalationRecord struct {
	// ID uniquely identifies the escalation.
	ID string `json:"id"`
	// RunID is the run that suspended.
	RunID string `json:"run_id"`
	// ResumeNode is the node the engine re-enters after resolution.
	ResumeNode string `json:"resume_node"`
	// Reason is a human-readable summary of why the run escalated.
	Reason string `json:"reason"`
	// TaskID references the task involved, if any.
	TaskID string `json:"task_id,omitempty"`
	// LastError is the most recent error message.
	LastError string `json:"last_error,omitempty"`
	// Attempts is the number of attempts made before escalating.
	Attempts int `json:"attempts"`
	// Question is a specific free-text question, if the failure was
	// an ambiguity the agent could not resolve alone.
	Question string `json:"question,omitempty"`
	// Options are the offered resolution choices.
	Options []string `json:"options,omitempty"`
	// Response is the human's answer once resolved.
	Response string `json:"response,omitempty"`
	// CreatedAt is when the run suspended.
	CreatedAt time.Time `json:"created_at"`
	// ResolvedAt is when a human responded, if they have.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Pending reports whether the escalation is still waiting for a human.
func (e *EscalationRecord) Pending() bool {
	return e.ResolvedAt == nil
}
