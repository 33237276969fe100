// Package agent invokes the external reasoning agent as a subprocess.
// The agent is a black box: prompt text in on stdin, result text out on
// stdout, with a hard wall-clock timeout.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout indicates the agent exceeded its wall-clock budget. The process
// is killed at the boundary; it is never left running past the timeout.
var ErrTimeout = errors.New("agent invocation timed out")

// Runner executes the configured agent command.
type Runner struct {
	command string
	args    []string
	timeout time.Duration
}

// NewRunner creates a runner for the given command line and timeout.
func NewRunner(command string, args []string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{command: command, args: args, timeout: timeout}
}

// Run sends prompt to the agent and returns its stdout. An empty result is
// a valid success; process failures and timeouts are errors, with timeouts
// distinguishable via errors.Is(err, ErrTimeout).
func (r *Runner) Run(ctx context.Context, prompt, workdir string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command, r.args...)
	cmd.Stdin = strings.NewReader(prompt)
	if workdir != "" {
		cmd.Dir = workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return "", fmt.Errorf("agent process failed: %w", err)
		}
		return "", fmt.Errorf("agent process failed: %w: %s", err, detail)
	}

	return stdout.String(), nil
}
