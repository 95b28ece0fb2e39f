/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package action

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the payload variants.
type Kind string

const (
	// KindEdit applies file changes to the workspace and triggers a test run.
	KindEdit Kind = "EDIT"
	// KindSubmit publishes the current workspace state as a pull request.
	KindSubmit Kind = "SUBMIT"
)

// FileChange is a whole-file change. A nil Content deletes Path.
type FileChange struct {
	Path    string  `json:"path" jsonschema:"description=File path relative to the repository root"`
	Content *string `json:"content" jsonschema:"description=Complete new file content; null deletes the file"`
}

// Edit is an ordered set of file changes. Order affects write sequencing
// only, never the final state. An Edit with zero changes is a valid no-op
// that still triggers a test run.
type Edit struct {
	Files []FileChange `json:"files"`
}

// Submit requests publication of the workspace's current file state.
type Submit struct {
	Branch      string `json:"branch" jsonschema:"description=Branch name for the pull request"`
	Title       string `json:"title" jsonschema:"description=Pull request title"`
	Description string `json:"description" jsonschema:"description=Pull request body"`
}

// Payload is a closed tagged variant over Edit and Submit. The zero Payload
// is invalid; construct one with NewEdit or NewSubmit, or via Parse.
type Payload struct {
	kind   Kind
	edit   *Edit
	submit *Submit
}

// NewEdit constructs an EDIT payload.
func NewEdit(files ...FileChange) Payload {
	return Payload{kind: KindEdit, edit: &Edit{Files: files}}
}

// NewSubmit constructs a SUBMIT payload.
func NewSubmit(branch, title, description string) Payload {
	return Payload{kind: KindSubmit, submit: &Submit{
		Branch:      branch,
		Title:       title,
		Description: description,
	}}
}

// Kind returns the active variant's tag, or "" for the zero Payload.
func (p Payload) Kind() Kind { return p.kind }

// Edit returns the edit action if this is an EDIT payload.
func (p Payload) Edit() (*Edit, bool) {
	if p.kind != KindEdit {
		return nil, false
	}
	return p.edit, true
}

// Submit returns the submit action if this is a SUBMIT payload.
func (p Payload) Submit() (*Submit, bool) {
	if p.kind != KindSubmit {
		return nil, false
	}
	return p.submit, true
}

// wirePayload is the flat JSON form produced by the model.
type wirePayload struct {
	Action      string       `json:"action" jsonschema:"enum=EDIT,enum=SUBMIT,description=Action discriminator"`
	Files       []FileChange `json:"files,omitempty" jsonschema:"description=File changes; required for EDIT"`
	Branch      string       `json:"branch,omitempty" jsonschema:"description=Branch name; required for SUBMIT"`
	Title       string       `json:"title,omitempty" jsonschema:"description=Pull request title; required for SUBMIT"`
	Description string       `json:"description,omitempty" jsonschema:"description=Pull request body; required for SUBMIT"`
}

// MarshalJSON renders the payload in its wire form, so iteration records and
// reports show exactly what the executor consumed. Each variant carries only
// its own fields; an empty edit serializes with an explicit empty files
// array.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case KindEdit:
		files := p.edit.Files
		if files == nil {
			files = []FileChange{}
		}
		return json.Marshal(struct {
			Action string       `json:"action"`
			Files  []FileChange `json:"files"`
		}{string(KindEdit), files})
	case KindSubmit:
		return json.Marshal(struct {
			Action      string `json:"action"`
			Branch      string `json:"branch"`
			Title       string `json:"title"`
			Description string `json:"description"`
		}{string(KindSubmit), p.submit.Branch, p.submit.Title, p.submit.Description})
	default:
		return nil, fmt.Errorf("cannot marshal payload with kind %q", p.kind)
	}
}

// String returns a short human-readable summary for logs and reports.
func (p Payload) String() string {
	switch p.kind {
	case KindEdit:
		return fmt.Sprintf("EDIT (%d files)", len(p.edit.Files))
	case KindSubmit:
		return fmt.Sprintf("SUBMIT (branch %s)", p.submit.Branch)
	default:
		return "INVALID"
	}
}
