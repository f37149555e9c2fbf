// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"strings"
	"time"
)

// RunStatus is the canonical status of a workflow run as observed through
// the workflow engine or inferred from trace events.
type RunStatus string

// Canonical run statuses.
const (
	RunStatusRunning       RunStatus = "RUNNING"
	RunStatusQueued        RunStatus = "QUEUED"
	RunStatusAwaitingInput RunStatus = "AWAITING_INPUT"
	RunStatusCompleted     RunStatus = "COMPLETED"
	RunStatusFailed        RunStatus = "FAILED"
	RunStatusCancelled     RunStatus = "CANCELLED"
	RunStatusTerminated    RunStatus = "TERMINATED"
	RunStatusTimedOut      RunStatus = "TIMED_OUT"

	// RunStatusStale marks an orphan: the run record exists but the workflow
	// never left a trace and the engine has no record of it. Surfaced for
	// display only; never cached, since the run may later become valid.
	RunStatusStale RunStatus = "STALE"
)

// IsTerminal reports whether the status never transitions again.
// STALE is deliberately not terminal: it is an inference, not an observation.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusTerminated, RunStatusTimedOut:
		return true
	default:
		return false
	}
}

// NormalizeEngineStatus maps an engine-native status string onto the
// canonical set. The engine reports statuses as
// "WORKFLOW_EXECUTION_STATUS_<NAME>" or as the bare name; "TIMEDOUT" and
// "TIMED_OUT" are both accepted. Unrecognized values map to RUNNING so a
// transiently unknown status never masquerades as terminal.
func NormalizeEngineStatus(raw string) RunStatus {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "WORKFLOW_EXECUTION_STATUS_")
	name = strings.ReplaceAll(name, "-", "_")

	switch name {
	case "RUNNING":
		return RunStatusRunning
	case "QUEUED", "PENDING":
		return RunStatusQueued
	case "AWAITING_INPUT":
		return RunStatusAwaitingInput
	case "COMPLETED":
		return RunStatusCompleted
	case "FAILED":
		return RunStatusFailed
	case "CANCELED", "CANCELLED":
		return RunStatusCancelled
	case "TERMINATED":
		return RunStatusTerminated
	case "TIMED_OUT", "TIMEDOUT":
		return RunStatusTimedOut
	default:
		return RunStatusRunning
	}
}

// RunRecord is the gateway's view of a stored workflow run: enough to make
// the cache-hit decision and compute progress, nothing more.
type RunRecord struct {
	ID           string
	WorkflowID   string
	TenantID     string
	Status       RunStatus
	CloseTime    *time.Time
	TotalActions int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasTerminalStatus reports whether the stored record already carries a
// terminal status, meaning the engine does not need to be consulted.
func (r *RunRecord) HasTerminalStatus() bool {
	return r != nil && r.Status.IsTerminal()
}

// TraceCounts holds per-run trace event counts used for progress reporting
// and for status inference when the engine has forgotten the run.
type TraceCounts struct {
	Started   int
	Completed int
	Failed    int
}

// InferStatus derives a run status from trace event counts for a run the
// engine cannot find. total is the run's stored totalActions.
//
//	started == 0                       → STALE (record exists, never executed)
//	failed > 0                         → FAILED
//	completed >= total && total > 0    → COMPLETED
//	started > 0 && completed < total   → FAILED (crashed or lost)
//	otherwise                          → FAILED
func (c TraceCounts) InferStatus(total int) RunStatus {
	switch {
	case c.Started == 0:
		return RunStatusStale
	case c.Failed > 0:
		return RunStatusFailed
	case total > 0 && c.Completed >= total:
		return RunStatusCompleted
	default:
		return RunStatusFailed
	}
}
