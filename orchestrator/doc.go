/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package orchestrator drives one issue to a pull request. A Session leases
// a workspace, asks the model for actions one at a time, applies each
// through the executor, and feeds failures back into the next request. The
// attempt budget bounds how many actions the model gets; escaping paths and
// publish failures end the session immediately.
package orchestrator
