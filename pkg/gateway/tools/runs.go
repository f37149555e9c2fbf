// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/studiomcp/gateway/pkg/audit"
)

func runTools() []Definition {
	return []Definition{
		{
			Name:        "list_runs",
			Description: "List runs of a workflow, newest first.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"},
					"limit": {"type": "integer", "minimum": 1, "maximum": 200},
					"offset": {"type": "integer", "minimum": 0}
				},
				"required": ["workflowId"],
				"additionalProperties": false
			}`),
			Handler: handleListRuns,
		},
		{
			Name: "get_run_status",
			Description: "Resolve a run's current status with progress counters. " +
				"Terminal runs are served from the status cache.",
			Permission: "runs.read",
			Kind:       KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleGetRunStatus,
		},
		{
			Name:        "get_run_result",
			Description: "Fetch the output payload of a completed run.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleGetRunResult,
		},
		{
			Name:        "get_run_config",
			Description: "Fetch the resolved configuration a run was started with.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleGetRunConfig,
		},
		{
			Name:        "get_run_trace",
			Description: "List a run's trace events in execution order.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"},
					"limit": {"type": "integer", "minimum": 1, "maximum": 500},
					"offset": {"type": "integer", "minimum": 0}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleGetRunTrace,
		},
		{
			Name:        "list_run_node_io",
			Description: "List the per-node inputs and outputs recorded for a run.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleListRunNodeIO,
		},
		{
			Name:        "get_node_io",
			Description: "Fetch one node I/O record from a run.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"},
					"nodeIoId": {"type": "string"}
				},
				"required": ["runId", "nodeIoId"],
				"additionalProperties": false
			}`),
			Handler: handleGetNodeIO,
		},
		{
			Name:        "get_run_logs",
			Description: "Fetch a run's log lines.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"},
					"limit": {"type": "integer", "minimum": 1, "maximum": 1000},
					"offset": {"type": "integer", "minimum": 0}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleGetRunLogs,
		},
		{
			Name:        "list_child_runs",
			Description: "List runs spawned by a parent run (sub-workflows).",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleListChildRuns,
		},
		{
			Name:        "cancel_run",
			Description: "Cancel a running workflow execution.",
			Permission:  "runs.cancel",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"runId": {"type": "string"}
				},
				"required": ["runId"],
				"additionalProperties": false
			}`),
			Handler: handleCancelRun,
		},
	}
}

func handleListRuns(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	return svc.ListRuns(ctx, inv.Auth, workflowID, listOpts(inv.Args))
}

func handleGetRunStatus(ctx context.Context, inv *Invocation) (any, error) {
	resolver, err := inv.Deps.RequireRunStatus()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, inv.Auth.TenantID, runID)
}

func handleGetRunResult(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return svc.GetRunResult(ctx, inv.Auth, runID)
}

func handleGetRunConfig(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return svc.GetRunConfig(ctx, inv.Auth, runID)
}

func handleGetRunTrace(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireTrace()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return svc.ListEvents(ctx, inv.Auth.TenantID, runID, listOpts(inv.Args))
}

func handleListRunNodeIO(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireNodeIO()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	if err := ensureRunAccess(ctx, inv, runID); err != nil {
		return nil, err
	}
	return svc.ListRunNodeIO(ctx, inv.Auth.TenantID, runID)
}

// handleGetNodeIO verifies run access before touching the node-I/O store.
// Node I/O rows are addressed by opaque ID, so skipping the check would let
// a caller read another tenant's rows by guessing IDs.
func handleGetNodeIO(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireNodeIO()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	nodeIOID, err := stringArg(inv.Args, "nodeIoId")
	if err != nil {
		return nil, err
	}
	if err := ensureRunAccess(ctx, inv, runID); err != nil {
		return nil, err
	}
	return svc.GetNodeIO(ctx, inv.Auth.TenantID, nodeIOID)
}

func handleGetRunLogs(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireLogs()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return svc.GetRunLogs(ctx, inv.Auth.TenantID, runID, listOpts(inv.Args))
}

func handleListChildRuns(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	return svc.ListChildRuns(ctx, inv.Auth, runID)
}

func handleCancelRun(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	runID, err := stringArg(inv.Args, "runId")
	if err != nil {
		return nil, err
	}
	if err := svc.CancelRun(ctx, inv.Auth, runID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "run.cancel", audit.ResourceRun, runID, "", nil)
	return map[string]any{"cancelled": true, "runId": runID}, nil
}

func ensureRunAccess(ctx context.Context, inv *Invocation, runID string) error {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return err
	}
	return svc.EnsureRunAccess(ctx, inv.Auth, runID)
}
