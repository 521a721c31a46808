package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/praxisworks/conductor/internal/escalate"
)

// CLIInvoker runs an agent as a local subprocess (e.g. the claude
// CLI in print mode). Selected by configuration when no API key is
// wanted on the machine.
type CLIInvoker struct {
	// Binary is the executable to run.
	Binary string
	// ExtraArgs are appended to every invocation.
	ExtraArgs []string
}

// NewCLIInvoker creates a subprocess-backed invoker.
func NewCLIInvoker(binary string, extraArgs ...string) *CLIInvoker {
	if binary == "" {
		binary = "claude"
	}
	return &CLIInvoker{Binary: binary, ExtraArgs: extraArgs}
}

var _ Invoker = (*CLIInvoker)(nil)

// args builds the subprocess argument list for a request.
func (c *CLIInvoker) args(req Request) []string {
	args := []string{"--print", "--output-format", "text"}
	if req.System != "" {
		args = append(args, "--append-system-prompt", req.System)
	}
	args = append(args, c.ExtraArgs...)
	args = append(args, req.Prompt)
	return args
}

// Invoke runs the subprocess in the request's workdir and captures its
// output. A timeout is a transient failure and gets retried; any other
// failure (missing binary, non-zero exit) is structural, since
// re-running the same command is unlikely to change the outcome.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutFor(req))
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Binary, c.args(req)...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, escalate.Transient(fmt.Errorf(
				"%s subprocess timed out after %v", req.Role, timeoutFor(req)))
		}
		return nil, escalate.Structural(fmt.Errorf(
			"%s subprocess: %w: %s", req.Role, err, firstLine(stderr.String())))
	}

	return &Result{
		Role:     req.Role,
		Output:   stdout.String(),
		Duration: time.Since(start),
	}, nil
}

// firstLine trims stderr to its first line for error messages.
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
