// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/gateway"
)

func taskTools() []Definition {
	return []Definition{
		{
			Name:        "get_task",
			Description: "Fetch the current state of a background task started by run_workflow.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"taskId": {"type": "string"}
				},
				"required": ["taskId"],
				"additionalProperties": false
			}`),
			Handler: handleGetTask,
		},
		{
			Name:        "get_task_result",
			Description: "Fetch the result payload of a finished background task.",
			Permission:  "runs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"taskId": {"type": "string"}
				},
				"required": ["taskId"],
				"additionalProperties": false
			}`),
			Handler: handleGetTaskResult,
		},
		{
			Name:        "cancel_task",
			Description: "Cancel a background task's underlying workflow run.",
			Permission:  "runs.cancel",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"taskId": {"type": "string"}
				},
				"required": ["taskId"],
				"additionalProperties": false
			}`),
			Handler: handleCancelTask,
		},
	}
}

func handleGetTask(_ context.Context, inv *Invocation) (any, error) {
	engine, err := inv.Deps.RequireTasks()
	if err != nil {
		return nil, err
	}
	taskID, err := stringArg(inv.Args, "taskId")
	if err != nil {
		return nil, err
	}
	task, err := engine.Store().Get(taskID)
	if err != nil {
		return nil, err
	}
	snap := task.Snapshot()
	// The task handle echoes state, not the result; keep get_task cheap.
	snap.Result = nil
	return snap, nil
}

func handleGetTaskResult(_ context.Context, inv *Invocation) (any, error) {
	engine, err := inv.Deps.RequireTasks()
	if err != nil {
		return nil, err
	}
	taskID, err := stringArg(inv.Args, "taskId")
	if err != nil {
		return nil, err
	}
	task, err := engine.Store().Get(taskID)
	if err != nil {
		return nil, err
	}
	snap := task.Snapshot()
	if !snap.State.IsTerminal() {
		return nil, fmt.Errorf("%w: task %s has not finished yet (state %s)",
			gateway.ErrInvalidInput, taskID, snap.State)
	}
	return snap, nil
}

func handleCancelTask(ctx context.Context, inv *Invocation) (any, error) {
	engine, err := inv.Deps.RequireTasks()
	if err != nil {
		return nil, err
	}
	taskID, err := stringArg(inv.Args, "taskId")
	if err != nil {
		return nil, err
	}
	snap, err := engine.Cancel(ctx, inv.Auth, taskID)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "run.cancel", audit.ResourceRun, snap.RunID, "", map[string]any{
		"taskId": taskID,
	})
	return snap, nil
}
