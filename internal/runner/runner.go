// Package runner executes external commands inside a repository directory.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout is the per-command execution timeout.
const DefaultTimeout = 10 * time.Minute

// waitDelay bounds how long Wait blocks on output pipes after the context
// kills the process; forked children may otherwise hold them open.
const waitDelay = time.Second

// ExecFunc runs a command in dir and returns its combined stdout/stderr.
// A non-zero exit must be reported as an error.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// SystemExec runs the command with os/exec.
func SystemExec(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	c.WaitDelay = waitDelay
	return c.CombinedOutput()
}

// Command describes a single invocation.
type Command struct {
	Dir     string
	Binary  string
	Args    []string
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a single invocation.
type Result struct {
	Command  string        `json:"command"`
	Output   []byte        `json:"-"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// Runner executes commands through an injectable exec function.
type Runner struct {
	execFn ExecFunc
}

// New creates a Runner. A nil execFn falls back to SystemExec.
func New(execFn ExecFunc) *Runner {
	if execFn == nil {
		execFn = SystemExec
	}
	return &Runner{
		execFn: execFn,
	}
}

// Run executes cmd and blocks until it exits or its timeout elapses.
// Spawn failures, non-zero exits and timeouts all produce Success=false.
func (r *Runner) Run(ctx context.Context, cmd Command) Result {
	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := r.execFn(runCtx, cmd.Dir, cmd.Binary, cmd.Args...)
	duration := time.Since(start)

	result := Result{
		Command:  cmd.String(),
		Output:   out,
		Duration: duration,
	}

	if err != nil {
		result.ExitCode = exitCode(err)
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Sprintf("timed out after %s", timeout)
		default:
			result.Error = err.Error()
		}
		return result
	}

	result.Success = true
	return result
}

// exitCode extracts the process exit status, or -1 when the process never ran.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
