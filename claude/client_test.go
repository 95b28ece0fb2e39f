/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claude

import (
	"errors"
	"strings"
	"testing"

	"chainguard.dev/issueforge/orchestrator"
	"github.com/anthropics/anthropic-sdk-go"
)

func TestBuildPrompt(t *testing.T) {
	req := &orchestrator.Request{
		Goal:     "Fix issue 7\n\nMake x equal 2.",
		Files:    []string{"a.py", "pkg/util.py"},
		Feedback: "The tests failed with the following output:\n\n```\nboom\n```\n",
		Attempt:  2,
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}

	for _, want := range []string{
		"Fix issue 7",
		"- a.py",
		"- pkg/util.py",
		"boom",
		"EDIT",
		"SUBMIT",
		"Attempt 2",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptWithoutFeedback(t *testing.T) {
	prompt, err := buildPrompt(&orchestrator.Request{Goal: "g", Attempt: 1})
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	if strings.Contains(prompt, "previous attempt") {
		t.Fatal("first attempt prompt carries feedback section")
	}
	if !strings.Contains(prompt, "(empty repository)") {
		t.Fatal("prompt missing empty file listing marker")
	}
}

func TestTextFromMessage(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `{"action": "EDIT", `},
			{Type: "text", Text: `"files": []}`},
		},
	}
	if got := textFromMessage(msg); got != `{"action": "EDIT", "files": []}` {
		t.Fatalf("textFromMessage = %q", got)
	}

	if got := textFromMessage(&anthropic.Message{}); got != "" {
		t.Fatalf("textFromMessage on empty message = %q", got)
	}
}

func TestIsRetryableError(t *testing.T) {
	for _, code := range []int{429, 503, 504, 529} {
		if !isRetryableError(&anthropic.Error{StatusCode: code}) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 404, 500} {
		if isRetryableError(&anthropic.Error{StatusCode: code}) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
	if isRetryableError(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
}

func TestNewOptionValidation(t *testing.T) {
	var client anthropic.Client

	if _, err := New(client, WithModel("")); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New(client, WithMaxTokens(0)); err == nil {
		t.Fatal("expected error for zero max tokens")
	}
	if _, err := New(client, WithTemperature(1.5)); err == nil {
		t.Fatal("expected error for out-of-range temperature")
	}
	if _, err := New(client, WithModel("claude-sonnet-4-5"), WithMaxTokens(1024), WithTemperature(0)); err != nil {
		t.Fatalf("New: %v", err)
	}
}
