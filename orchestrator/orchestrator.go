/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/issueforge/action"
	"chainguard.dev/issueforge/executor"
	"chainguard.dev/issueforge/metrics"
	"chainguard.dev/issueforge/publisher"
	"chainguard.dev/issueforge/snapshot"
	"chainguard.dev/issueforge/testrunner"
	"chainguard.dev/issueforge/workspace"
	"github.com/chainguard-dev/clog"
)

const defaultMaxAttempts = 10

// State names a position in the session's lifecycle.
type State string

const (
	// StateAwaitingAction means the session is waiting on the model's next
	// action.
	StateAwaitingAction State = "awaiting_action"
	// StateTesting means an edit was applied and its test run is underway.
	StateTesting State = "testing"
	// StateRetrying means the last attempt failed and the failure is being
	// fed back to the model.
	StateRetrying State = "retrying"
	// StateSucceeded means a submit published a pull request.
	StateSucceeded State = "succeeded"
	// StateFailed means the session ended without a pull request.
	StateFailed State = "failed"
)

// Request carries everything the model needs to produce its next action.
type Request struct {
	// Goal is the issue being worked, rendered as title and body.
	Goal string
	// Files lists the paths in the current desired file state.
	Files []string
	// Feedback describes why the previous attempt failed, empty on the
	// first attempt.
	Feedback string
	// Attempt is 1-based.
	Attempt int
}

// Requester produces the next action for a request. Implementations wrap a
// model; errors are treated as failed attempts unless the context is done.
type Requester interface {
	RequestAction(ctx context.Context, req *Request) (action.Payload, error)
}

// Record captures one attempt for reporting.
type Record struct {
	Attempt int
	State   State
	Payload action.Payload
	Test    *testrunner.Result
	Publish *publisher.Result
	Err     error
	Elapsed time.Duration
}

// Outcome is the session's terminal report.
type Outcome struct {
	State    State
	Records  []Record
	PR       *publisher.Result
	LastTest *testrunner.Result
}

// Session drives a single issue end to end.
type Session struct {
	requester   Requester
	manager     *workspace.Manager
	runner      testrunner.Runner
	pub         publisher.Publisher
	goal        string
	base        snapshot.Snapshot
	maxAttempts int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxAttempts bounds how many actions the model gets before the session
// fails.
func WithMaxAttempts(n int) SessionOption {
	return func(s *Session) {
		s.maxAttempts = n
	}
}

// NewSession constructs a Session over an already-loaded snapshot.
func NewSession(requester Requester, manager *workspace.Manager, runner testrunner.Runner, pub publisher.Publisher, goal string, base snapshot.Snapshot, opts ...SessionOption) (*Session, error) {
	switch {
	case requester == nil:
		return nil, errors.New("requester cannot be nil")
	case manager == nil:
		return nil, errors.New("workspace manager cannot be nil")
	case runner == nil:
		return nil, errors.New("runner cannot be nil")
	case pub == nil:
		return nil, errors.New("publisher cannot be nil")
	case goal == "":
		return nil, errors.New("goal cannot be empty")
	}

	s := &Session{
		requester:   requester,
		manager:     manager,
		runner:      runner,
		pub:         pub,
		goal:        goal,
		base:        base,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be positive, got %d", s.maxAttempts)
	}
	return s, nil
}

// Run executes the session until a submit publishes, the attempt budget is
// exhausted, or a fatal error ends it early. The returned Outcome is always
// populated; the error is non-nil only when the context was interrupted.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	log := clog.FromContext(ctx)

	ws, err := s.manager.Lease(ctx, s.base)
	if err != nil {
		return nil, fmt.Errorf("leasing workspace: %w", err)
	}
	defer func() {
		if err := ws.Return(ctx); err != nil {
			log.With("error", err).Warn("Returning workspace failed")
		}
	}()

	exec, err := executor.New(ws, s.runner, s.pub, s.base)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{State: StateFailed}
	defer func() {
		metrics.Sessions.WithLabelValues(string(outcome.State)).Inc()
	}()

	feedback := ""
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		log.With("attempt", attempt).With("max_attempts", s.maxAttempts).
			Info("Requesting action")

		start := time.Now()
		record := Record{Attempt: attempt}
		payload, err := s.requester.RequestAction(ctx, &Request{
			Goal:     s.goal,
			Files:    exec.Desired().Paths(),
			Feedback: feedback,
			Attempt:  attempt,
		})
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			record.State = StateRetrying
			record.Err = err
			record.Elapsed = time.Since(start)
			outcome.Records = append(outcome.Records, record)
			metrics.Attempts.WithLabelValues("request_error").Inc()

			feedback = requestFeedback(err)
			log.With("error", err).Warn("Action request failed")
			continue
		}
		record.Payload = payload

		applied, err := exec.Apply(ctx, payload)
		record.Elapsed = time.Since(start)
		if err != nil {
			record.Err = err
			state, label, terminal := classifyApplyError(err)
			record.State = state
			outcome.Records = append(outcome.Records, record)
			metrics.Attempts.WithLabelValues(label).Inc()

			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			if terminal {
				log.With("error", err).Error("Fatal error, ending session")
				outcome.State = StateFailed
				return outcome, nil
			}
			feedback = applyFeedback(err)
			log.With("error", err).Warn("Attempt failed")
			continue
		}

		record.Test = applied.Test
		record.Publish = applied.Publish

		if applied.Publish != nil {
			record.State = StateSucceeded
			outcome.Records = append(outcome.Records, record)
			metrics.Attempts.WithLabelValues("submitted").Inc()
			metrics.PublishedPRs.Inc()

			outcome.State = StateSucceeded
			outcome.PR = applied.Publish
			outcome.LastTest = exec.LastTest()
			log.With("pr", applied.Publish.URL).Info("Session succeeded")
			return outcome, nil
		}

		outcome.LastTest = applied.Test
		if applied.Test.Success {
			record.State = StateAwaitingAction
			outcome.Records = append(outcome.Records, record)
			metrics.Attempts.WithLabelValues("tests_passed").Inc()
			feedback = "All tests pass. Submit the change when you are done editing."
			continue
		}

		record.State = StateRetrying
		outcome.Records = append(outcome.Records, record)
		metrics.Attempts.WithLabelValues("tests_failed").Inc()
		feedback = applied.Test.FormatFailure()
	}

	log.With("max_attempts", s.maxAttempts).Warn("Attempt budget exhausted")
	return outcome, nil
}

// classifyApplyError maps an executor failure to the recorded state, a
// metric label, and whether it ends the session.
func classifyApplyError(err error) (State, string, bool) {
	var (
		pathErr *workspace.PathError
		pubErr  *publisher.PublishError
		valErr  *executor.ValidationError
		malErr  *action.MalformedError
		partial *workspace.PartialError
	)
	switch {
	case errors.As(err, &pathErr):
		return StateFailed, "security_violation", true
	case errors.As(err, &pubErr):
		return StateFailed, "publish_error", true
	case errors.As(err, &valErr):
		return StateRetrying, "invalid_submit", false
	case errors.As(err, &malErr):
		return StateRetrying, "malformed_action", false
	case errors.As(err, &partial):
		return StateRetrying, "partial_write", false
	default:
		return StateRetrying, "apply_error", false
	}
}

func requestFeedback(err error) string {
	var malErr *action.MalformedError
	if errors.As(err, &malErr) {
		return fmt.Sprintf("Your previous response was not a valid action: %s. Respond with a single JSON action object.", malErr.Reason)
	}
	return fmt.Sprintf("The previous request failed before any changes were made: %v. Please respond again.", err)
}

func applyFeedback(err error) string {
	var (
		valErr  *executor.ValidationError
		partial *workspace.PartialError
	)
	switch {
	case errors.As(err, &valErr):
		return fmt.Sprintf("The submit was rejected: %s. Make the tests pass with an edit before submitting.", valErr.Reason)
	case errors.As(err, &partial):
		return fmt.Sprintf("Some files could not be written (%v). Re-send the edit; already applied files are kept.", partial.Unapplied)
	default:
		return fmt.Sprintf("Applying the previous action failed: %v. Please try again.", err)
	}
}
