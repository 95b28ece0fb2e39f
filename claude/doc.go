/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claude asks a Claude model for the next action on an issue. The
// client renders the issue, the current file listing, and any failure
// feedback into a single prompt, and parses the model's JSON response into
// an action payload. Transient API errors are retried with backoff.
package claude
