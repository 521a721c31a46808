package escalate

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"explicit transient", Transient(errors.New("anything")), ClassTransient},
		{"explicit structural", Structural(errors.New("tests failed")), ClassStructural},
		{"explicit boundary", Boundary(errors.New("wrote outside scope")), ClassBoundary},
		{"wrapped classed error", fmt.Errorf("invoke agent: %w", Transient(errors.New("x"))), ClassTransient},
		{"deadlock sentinel", ErrDeadlock, ClassDeadlock},
		{"wrapped deadlock", fmt.Errorf("select batch: %w", ErrDeadlock), ClassDeadlock},
		{"ambiguity", &AmbiguityError{Question: "which auth scheme?"}, ClassAmbiguity},
		{"timeout text", errors.New("request timed out after 30s"), ClassTransient},
		{"rate limit text", errors.New("429 rate limit exceeded"), ClassTransient},
		{"connection text", errors.New("dial tcp: connection refused"), ClassTransient},
		{"plain failure", errors.New("acceptance criterion 2 not met"), ClassStructural},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassValid(t *testing.T) {
	for _, c := range []Class{ClassTransient, ClassStructural, ClassBoundary, ClassDeadlock, ClassAmbiguity} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Class("mystery").Valid() {
		t.Error("unknown class should not be valid")
	}
}

func TestClassedErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Structural(cause)
	if !errors.Is(err, cause) {
		t.Error("classed error should unwrap to its cause")
	}
}
