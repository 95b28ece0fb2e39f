/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:  maxRetries,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	ctx := context.Background()

	calls := 0
	got, err := Do(ctx, fastConfig(3), "test_op", nil, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q, want %q", got, "ok")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	ctx := context.Background()

	permanent := errors.New("permanent")
	calls := 0
	_, err := Do(ctx, fastConfig(5), "test_op", func(err error) bool {
		return !errors.Is(err, permanent)
	}, func() (int, error) {
		calls++
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	ctx := context.Background()

	calls := 0
	_, err := Do(ctx, fastConfig(2), "test_op", nil, func() (int, error) {
		calls++
		return 0, errors.New("always")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoZeroRetriesCallsOnce(t *testing.T) {
	ctx := context.Background()

	calls := 0
	_, err := Do(ctx, Config{}, "test_op", nil, func() (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
	if err := (Config{MaxRetries: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative max retries")
	}
}
