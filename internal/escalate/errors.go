// Package escalate translates raw node failures into routing decisions:
// retry with backoff, re-run the owning node, or suspend for a human.
package escalate

import (
	"errors"
	"fmt"
	"strings"
)

// Class is the failure taxonomy. Every error that reaches routing is
// normalized to exactly one class.
type Class string

const (
	// ClassTransient covers network and timeout-like failures that are
	// safe to retry immediately with backoff.
	ClassTransient Class = "transient"
	// ClassStructural covers failed acceptance criteria and failed
	// builds or tests; retried by re-running the owning node.
	ClassStructural Class = "structural"
	// ClassBoundary covers attempted writes outside a declared file
	// scope; always fatal to the step, never retried.
	ClassBoundary Class = "boundary"
	// ClassDeadlock means no progress is possible in the task graph.
	ClassDeadlock Class = "deadlock"
	// ClassAmbiguity means a node cannot proceed without clarification.
	ClassAmbiguity Class = "ambiguity"
)

// Valid returns true if the class is a known value.
func (c Class) Valid() bool {
	switch c {
	case ClassTransient, ClassStructural, ClassBoundary, ClassDeadlock, ClassAmbiguity:
		return true
	default:
		return false
	}
}

// ErrDeadlock signals that the task graph can make no further progress.
var ErrDeadlock = errors.New("no task is selectable and incomplete tasks remain")

// ClassedError carries an explicit taxonomy class with a wrapped cause.
type ClassedError struct {
	Class Class
	Err   error
}

func (e *ClassedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *ClassedError) Unwrap() error { return e.Err }

// Transient wraps err as a transient failure.
func Transient(err error) error {
	return &ClassedError{Class: ClassTransient, Err: err}
}

// Structural wraps err as a structural failure.
func Structural(err error) error {
	return &ClassedError{Class: ClassStructural, Err: err}
}

// Boundary wraps err as a file-scope boundary violation.
func Boundary(err error) error {
	return &ClassedError{Class: ClassBoundary, Err: err}
}

// AmbiguityError is raised when an agent reports it cannot proceed
// without clarification. The question is surfaced verbatim in the
// escalation.
type AmbiguityError struct {
	// Question is the specific clarification needed.
	Question string
	// Options are suggested answers, if the agent offered any.
	Options []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("clarification needed: %s", e.Question)
}

// transientMarkers are substrings that identify retryable failures
// from the agent boundary when no explicit class was attached.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"rate limit",
	"429",
	"overloaded",
	"503",
	"temporarily unavailable",
}

// Classify normalizes an arbitrary error to a taxonomy class. Explicit
// classes win; otherwise deadlock and ambiguity sentinels are checked,
// then transient markers; everything else is structural.
func Classify(err error) Class {
	var classed *ClassedError
	if errors.As(err, &classed) {
		return classed.Class
	}
	if errors.Is(err, ErrDeadlock) {
		return ClassDeadlock
	}
	var ambiguous *AmbiguityError
	if errors.As(err, &ambiguous) {
		return ClassAmbiguity
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassStructural
}
