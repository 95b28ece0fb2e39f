/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package action defines the payloads a model can propose against a
// workspace: an Edit carrying whole-file changes, or a Submit requesting that
// the current workspace state be published as a pull request.
//
// Payload is a closed tagged variant; exactly one of the two actions is ever
// active, and Parse rejects anything outside the wire schema with a
// MalformedError rather than defaulting. The wire schema is:
//
//	EDIT:   {"action":"EDIT","files":[{"path":"...","content":"..."|null}]}
//	SUBMIT: {"action":"SUBMIT","branch":"...","title":"...","description":"..."}
//
// A null content deletes the path. Schema reflects the wire form into a JSON
// schema suitable for embedding in model prompts.
package action
