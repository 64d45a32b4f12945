// Package executil provides shell execution utilities.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const maxStderrLen = 500

// Executor runs external commands.
type Executor interface {
	// Run executes a command and returns its stdout.
	Run(ctx context.Context, cmd string, args ...string) ([]byte, error)
	// RunDir executes a command in a specific directory and returns its stdout.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
	// RunDirInput executes a command in a specific directory, feeding input on stdin.
	RunDirInput(ctx context.Context, dir string, input []byte, cmd string, args ...string) ([]byte, error)
}

// ExitError reports a command failure with its exit code and captured stderr.
// Stderr is capped at 500 bytes to keep large or ANSI-polluted output from
// corrupting logs. The original error is preserved via Unwrap so callers can
// inspect the underlying *exec.ExitError with errors.As.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("exec %s: %s", e.Cmd, e.Stderr)
	}
	return fmt.Sprintf("exec %s: %v", e.Cmd, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// RealExecutor calls actual commands.
type RealExecutor struct{}

func (e *RealExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return run(ctx, "", nil, cmd, args...)
}

func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return run(ctx, dir, nil, cmd, args...)
}

func (e *RealExecutor) RunDirInput(ctx context.Context, dir string, input []byte, cmd string, args ...string) ([]byte, error) {
	return run(ctx, dir, input, cmd, args...)
}

func run(ctx context.Context, dir string, input []byte, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	if dir != "" {
		c.Dir = dir
	}
	if input != nil {
		c.Stdin = bytes.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > maxStderrLen {
			msg = msg[:maxStderrLen]
		}
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.Bytes(), &ExitError{Cmd: cmd, Code: code, Stderr: strings.TrimSpace(msg), Err: err}
	}
	return stdout.Bytes(), nil
}
