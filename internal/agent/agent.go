// Package agent is the boundary to external AI tooling. The engine
// talks to one Invoker interface and sees one normalized result shape;
// adapters hide whether the call went through the Anthropic API or a
// local CLI subprocess.
package agent

import (
	"context"
	"time"
)

// Role identifies which workflow actor an invocation is for. The role
// selects the system prompt and the expected result shape.
type Role string

const (
	// RolePlanner turns a spec into a plan document.
	RolePlanner Role = "planner"
	// RoleImplementer executes one task inside a worktree.
	RoleImplementer Role = "implementer"
	// RoleReviewerA is the first independent reviewer.
	RoleReviewerA Role = "reviewer_a"
	// RoleReviewerB is the second independent reviewer.
	RoleReviewerB Role = "reviewer_b"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RolePlanner, RoleImplementer, RoleReviewerA, RoleReviewerB:
		return true
	default:
		return false
	}
}

// DefaultTimeout bounds a single external call. A timeout marks the
// call failed and hands control to retry logic; it never kills the run.
const DefaultTimeout = 15 * time.Minute

// Request describes one external invocation.
type Request struct {
	// Role selects the actor and the expected result shape.
	Role Role
	// System is the role's system prompt.
	System string
	// Prompt is the user-facing payload (spec text, task, diff).
	Prompt string
	// Workdir is the directory the call operates in; implementer
	// calls run inside their task's worktree.
	Workdir string
	// TaskID references the task involved, if any.
	TaskID string
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Result is the normalized outcome of an invocation. Output carries
// the raw text; callers decode role-specific structures from it.
type Result struct {
	// Role echoes the request's role.
	Role Role `json:"role"`
	// Output is the agent's complete text output.
	Output string `json:"output"`
	// Duration is how long the call took.
	Duration time.Duration `json:"duration"`
}

// Invoker performs one external agent call. Implementations must honor
// context cancellation and the request timeout.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// timeoutFor returns the effective deadline for a request.
func timeoutFor(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return DefaultTimeout
}
