/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chainguard.dev/issueforge/action"
	"chainguard.dev/issueforge/publisher"
	"chainguard.dev/issueforge/snapshot"
	"chainguard.dev/issueforge/testrunner"
	"chainguard.dev/issueforge/workspace"
	"github.com/chainguard-dev/clog"
)

// ValidationError reports an action that is well-formed on the wire but not
// executable in the session's current state, such as a submit before any
// passing test run. Nothing external is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid action: %s", e.Reason)
}

// Outcome reports what one applied action produced. Test is set for edits,
// Publish for submits.
type Outcome struct {
	Test    *testrunner.Result
	Publish *publisher.Result
}

// Executor serializes action application for one session. The desired file
// state starts at the leased snapshot and accumulates edit deltas; the
// workspace is reconciled toward it as a whole, so a partially applied edit
// resumes on the next attempt.
type Executor struct {
	ws     *workspace.Workspace
	runner testrunner.Runner
	pub    publisher.Publisher

	mu       sync.Mutex
	desired  map[string]string
	lastTest *testrunner.Result
}

// New constructs an Executor over a workspace hydrated from base.
func New(ws *workspace.Workspace, runner testrunner.Runner, pub publisher.Publisher, base snapshot.Snapshot) (*Executor, error) {
	switch {
	case ws == nil:
		return nil, errors.New("workspace cannot be nil")
	case runner == nil:
		return nil, errors.New("runner cannot be nil")
	case pub == nil:
		return nil, errors.New("publisher cannot be nil")
	}
	// A nil base (empty repository) must still yield a writable state.
	desired := base.Clone()
	if desired == nil {
		desired = snapshot.Snapshot{}
	}
	return &Executor{
		ws:      ws,
		runner:  runner,
		pub:     pub,
		desired: desired,
	}, nil
}

// LastTest returns the most recent test result, or nil before the first run.
func (e *Executor) LastTest() *testrunner.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTest
}

// Desired returns a copy of the current desired file state.
func (e *Executor) Desired() snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot.Snapshot(e.desired).Clone()
}

// Apply executes one action. Edits reconcile the workspace and run the test
// suite; submits publish the desired state, guarded on the last run passing.
func (e *Executor) Apply(ctx context.Context, payload action.Payload) (*Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if edit, ok := payload.Edit(); ok {
		return e.applyEdit(ctx, edit)
	}
	if submit, ok := payload.Submit(); ok {
		return e.applySubmit(ctx, submit)
	}
	return nil, &ValidationError{Reason: "empty action"}
}

func (e *Executor) applyEdit(ctx context.Context, edit *action.Edit) (*Outcome, error) {
	log := clog.FromContext(ctx)

	// Reject escaping paths before folding anything, so the desired state
	// never holds a path the workspace would refuse.
	for _, fc := range edit.Files {
		if _, err := workspace.ValidatePath(e.ws.Root(), fc.Path); err != nil {
			return nil, err
		}
	}

	for _, fc := range edit.Files {
		if fc.Content == nil {
			delete(e.desired, fc.Path)
		} else {
			e.desired[fc.Path] = *fc.Content
		}
	}

	if err := e.ws.Reconcile(ctx, e.desired); err != nil {
		// The desired state keeps the folded deltas: replaying the same
		// reconcile resumes exactly the unapplied paths.
		return nil, err
	}

	result, err := e.runner.Run(ctx, e.ws.Root())
	if err != nil {
		return nil, fmt.Errorf("running tests: %w", err)
	}
	e.lastTest = result

	log.With("files", len(edit.Files)).
		With("tests_passed", result.Success).
		Info("Applied edit")
	return &Outcome{Test: result}, nil
}

func (e *Executor) applySubmit(ctx context.Context, submit *action.Submit) (*Outcome, error) {
	switch {
	case e.lastTest == nil:
		return nil, &ValidationError{Reason: "submit before any test run"}
	case !e.lastTest.Success:
		return nil, &ValidationError{Reason: "submit with failing tests"}
	}

	result, err := e.pub.Publish(ctx, submit.Branch, submit.Title, submit.Description, e.desired)
	if err != nil {
		return nil, err
	}

	clog.FromContext(ctx).With("pr", result.URL).Info("Published change")
	return &Outcome{Publish: result}, nil
}
