/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claude

import (
	"fmt"
	"strings"

	"chainguard.dev/issueforge/action"
	"chainguard.dev/issueforge/orchestrator"
)

const systemInstructions = `You are an autonomous software engineer working on a GitHub issue.
You operate on a checked-out copy of the repository by responding with exactly one JSON action object and nothing else.

An EDIT action replaces whole files (content null deletes the file):
{"action": "EDIT", "files": [{"path": "pkg/thing.py", "content": "..."}]}

A SUBMIT action opens a pull request once the tests pass:
{"action": "SUBMIT", "branch": "fix/some-branch", "title": "...", "description": "..."}

Rules:
- Paths are relative to the repository root. Never reference paths outside it.
- Every EDIT is followed by a test run; its failures are reported back to you.
- Only SUBMIT after a test run has passed.`

// buildPrompt renders a request into the user prompt for one attempt.
func buildPrompt(req *orchestrator.Request) (string, error) {
	schema, err := action.SchemaJSON()
	if err != nil {
		return "", fmt.Errorf("rendering action schema: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Issue\n\n")
	sb.WriteString(req.Goal)
	sb.WriteString("\n\n# Repository files\n\n")
	if len(req.Files) == 0 {
		sb.WriteString("(empty repository)\n")
	}
	for _, p := range req.Files {
		sb.WriteString("- ")
		sb.WriteString(p)
		sb.WriteString("\n")
	}

	if req.Feedback != "" {
		sb.WriteString("\n# Feedback on your previous attempt\n\n")
		sb.WriteString(req.Feedback)
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n# Response schema\n\nAttempt %d. Respond with one JSON object matching:\n\n```json\n%s\n```\n", req.Attempt, schema)
	return sb.String(), nil
}
