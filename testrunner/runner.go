/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testrunner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

const (
	defaultTimeout   = 5 * time.Minute
	defaultMaxOutput = 16 * 1024
)

// Result captures one test run.
type Result struct {
	// Success reports whether the command exited zero.
	Success bool
	// Output is the combined stdout and stderr, possibly truncated to the
	// configured cap.
	Output string
	// TimedOut reports whether the run was killed at the timeout.
	TimedOut bool
}

// FormatFailure renders a failing result as feedback suitable for inclusion
// in a follow-up prompt. It must not be called on a successful result.
func (r *Result) FormatFailure() string {
	var sb strings.Builder
	if r.TimedOut {
		sb.WriteString("The test run timed out before completing.\n")
	}
	sb.WriteString("The tests failed with the following output:\n\n```\n")
	sb.WriteString(strings.TrimRight(r.Output, "\n"))
	sb.WriteString("\n```\n")
	return sb.String()
}

// Runner runs the test suite rooted at dir.
type Runner interface {
	Run(ctx context.Context, dir string) (*Result, error)
}

// CommandRunner runs a fixed argv with a per-run timeout.
type CommandRunner struct {
	command   []string
	timeout   time.Duration
	maxOutput int
}

// CommandRunnerOption configures a CommandRunner.
type CommandRunnerOption func(*CommandRunner)

// WithTimeout sets the per-run wall clock budget.
func WithTimeout(d time.Duration) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.timeout = d
	}
}

// WithMaxOutput caps the retained combined output at n bytes, keeping the
// tail when truncating.
func WithMaxOutput(n int) CommandRunnerOption {
	return func(r *CommandRunner) {
		r.maxOutput = n
	}
}

// NewCommandRunner constructs a CommandRunner for the given argv.
func NewCommandRunner(command []string, opts ...CommandRunnerOption) (*CommandRunner, error) {
	if len(command) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	r := &CommandRunner{
		command:   command,
		timeout:   defaultTimeout,
		maxOutput: defaultMaxOutput,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes the command in dir. A non-zero exit or a timeout produces a
// failing Result; an error is returned only when the command could not be
// started or was interrupted by the caller's context.
func (r *CommandRunner) Run(ctx context.Context, dir string) (*Result, error) {
	log := clog.FromContext(ctx)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command[0], r.command[1:]...)
	cmd.Dir = dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	result := &Result{
		Success: err == nil,
		Output:  truncateTail(string(out), r.maxOutput),
	}

	switch {
	case err == nil:
		log.With("elapsed", elapsed).Info("Tests passed")
		return result, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		log.With("timeout", r.timeout).Warn("Test run timed out")
		return result, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.With("exit_code", exitErr.ExitCode()).
				With("elapsed", elapsed).
				Info("Tests failed")
			return result, nil
		}
		return nil, fmt.Errorf("running %q: %w", r.command[0], err)
	}
}

// truncateTail keeps the last max bytes of s, marking the cut.
func truncateTail(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return "[output truncated]\n" + s[len(s)-max:]
}
