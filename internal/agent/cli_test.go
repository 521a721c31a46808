package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/praxisworks/conductor/internal/escalate"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RolePlanner, RoleImplementer, RoleReviewerA, RoleReviewerB} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("operator").Valid() {
		t.Error("unknown role should not be valid")
	}
}

func TestCLIInvokerArgs(t *testing.T) {
	c := NewCLIInvoker("claude", "--model", "sonnet")
	args := c.args(Request{System: "be terse", Prompt: "do the thing"})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--print") {
		t.Error("args missing --print")
	}
	if !strings.Contains(joined, "--append-system-prompt be terse") {
		t.Error("args missing system prompt")
	}
	if args[len(args)-1] != "do the thing" {
		t.Errorf("prompt should be the final argument, got %q", args[len(args)-1])
	}
}

func TestCLIInvokerRunsSubprocess(t *testing.T) {
	// echo stands in for the real binary; it prints the flag list and
	// the prompt, which is enough to verify capture and plumbing.
	c := NewCLIInvoker("/bin/echo")

	res, err := c.Invoke(context.Background(), Request{
		Role:   RoleReviewerA,
		Prompt: "hello",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(res.Output, "hello") {
		t.Errorf("Output = %q, want it to contain the prompt", res.Output)
	}
	if res.Role != RoleReviewerA {
		t.Errorf("Role = %v, want reviewer_a", res.Role)
	}
}

// Retrying the identical command will not make a missing binary or a
// crashing subprocess succeed, so these failures are structural rather
// than transient.
func TestCLIInvokerSubprocessFailureIsStructural(t *testing.T) {
	tests := []struct {
		name   string
		binary string
		prompt string
	}{
		{"missing binary", "/nonexistent/agent-binary", "x"},
		{"non-zero exit", "/bin/false", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCLIInvoker(tt.binary)

			_, err := c.Invoke(context.Background(), Request{Role: RolePlanner, Prompt: tt.prompt})
			if err == nil {
				t.Fatal("expected subprocess failure")
			}
			if escalate.Classify(err) != escalate.ClassStructural {
				t.Errorf("classified as %v, want structural", escalate.Classify(err))
			}
		})
	}
}

func TestCLIInvokerTimeout(t *testing.T) {
	c := NewCLIInvoker("/bin/sleep")

	_, err := c.Invoke(context.Background(), Request{
		Role:    RoleImplementer,
		Prompt:  "5",
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var classed *escalate.ClassedError
	if !errors.As(err, &classed) || classed.Class != escalate.ClassTransient {
		t.Errorf("timeout error = %v, want transient class", err)
	}
}
