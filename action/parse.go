/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedError reports a model response that failed schema validation.
// It carries the raw response so the orchestrator can feed it back to the
// model for self-correction.
type MalformedError struct {
	Raw    string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed action payload: %s", e.Reason)
}

// Parse extracts the action payload from a model response. The response may
// wrap the JSON in markdown code fences. Anything outside the wire schema is
// rejected with a MalformedError; unrecognized action tags are never
// silently ignored.
func Parse(responseText string) (Payload, error) {
	raw := extractJSON(responseText)
	if raw == "" {
		return Payload{}, &MalformedError{Raw: responseText, Reason: "empty response"}
	}

	var wire wirePayload
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return Payload{}, &MalformedError{Raw: responseText, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	switch Kind(wire.Action) {
	case KindEdit:
		if wire.Branch != "" || wire.Title != "" || wire.Description != "" {
			return Payload{}, &MalformedError{Raw: responseText, Reason: "EDIT must not carry submit fields"}
		}
		for i, fc := range wire.Files {
			if fc.Path == "" {
				return Payload{}, &MalformedError{Raw: responseText, Reason: fmt.Sprintf("files[%d] has empty path", i)}
			}
		}
		return NewEdit(wire.Files...), nil

	case KindSubmit:
		if len(wire.Files) > 0 {
			return Payload{}, &MalformedError{Raw: responseText, Reason: "SUBMIT must not carry files"}
		}
		if wire.Branch == "" {
			return Payload{}, &MalformedError{Raw: responseText, Reason: "SUBMIT requires a branch"}
		}
		if wire.Title == "" {
			return Payload{}, &MalformedError{Raw: responseText, Reason: "SUBMIT requires a title"}
		}
		return NewSubmit(wire.Branch, wire.Title, wire.Description), nil

	default:
		return Payload{}, &MalformedError{Raw: responseText, Reason: fmt.Sprintf("unrecognized action %q", wire.Action)}
	}
}

// extractJSON extracts JSON content from a text response that may contain
// markdown code blocks. It looks for content between ```json and ``` markers,
// or returns the input trimmed if no markers are found.
func extractJSON(responseText string) string {
	lines := strings.Split(responseText, "\n")
	var jsonBuffer bytes.Buffer
	inJSONBlock := false
	foundJSON := false

	for _, line := range lines {
		if !inJSONBlock && strings.TrimSpace(line) == "```json" {
			inJSONBlock = true
			foundJSON = true
			continue
		}

		if inJSONBlock && strings.TrimSpace(line) == "```" {
			break
		}

		if inJSONBlock {
			if jsonBuffer.Len() > 0 {
				jsonBuffer.WriteString("\n")
			}
			jsonBuffer.WriteString(line)
		}
	}

	if foundJSON {
		return strings.TrimSpace(jsonBuffer.String())
	}

	// Fallback: models sometimes wrap the whole response in bare fences or
	// add stray whitespace.
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}
