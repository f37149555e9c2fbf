// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/gateway/permissions"
)

func workflowTools() []Definition {
	return []Definition{
		{
			Name:        "list_workflows",
			Description: "List the workflows in the caller's workspace.",
			Permission:  "workflows.list",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1, "maximum": 200},
					"offset": {"type": "integer", "minimum": 0}
				},
				"additionalProperties": false
			}`),
			Handler: handleListWorkflows,
		},
		{
			Name:        "get_workflow",
			Description: "Fetch one workflow definition by ID.",
			Permission:  "workflows.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"}
				},
				"required": ["workflowId"],
				"additionalProperties": false
			}`),
			Handler: handleGetWorkflow,
		},
		{
			Name:        "create_workflow",
			Description: "Create a new workflow from a definition object.",
			Permission:  "workflows.create",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"definition": {"type": "object"}
				},
				"required": ["definition"],
				"additionalProperties": false
			}`),
			Handler: handleCreateWorkflow,
		},
		{
			Name:        "update_workflow",
			Description: "Replace a workflow's definition.",
			Permission:  "workflows.update",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"},
					"definition": {"type": "object"}
				},
				"required": ["workflowId", "definition"],
				"additionalProperties": false
			}`),
			Handler: handleUpdateWorkflow,
		},
		{
			Name:        "update_workflow_metadata",
			Description: "Update a workflow's name, description or tags without touching the definition.",
			Permission:  "workflows.update",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"},
					"metadata": {"type": "object"}
				},
				"required": ["workflowId", "metadata"],
				"additionalProperties": false
			}`),
			Handler: handleUpdateWorkflowMetadata,
		},
		{
			Name:        "delete_workflow",
			Description: "Delete a workflow.",
			Permission:  "workflows.delete",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"}
				},
				"required": ["workflowId"],
				"additionalProperties": false
			}`),
			Handler: handleDeleteWorkflow,
		},
		{
			Name: "run_workflow",
			Description: "Start a workflow run as a background task. Returns a task ID; " +
				"poll it with get_task and fetch the final output with get_task_result.",
			Permission: "workflows.run",
			Kind:       KindTask,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"workflowId": {"type": "string"},
					"inputs": {"type": "object"}
				},
				"required": ["workflowId"],
				"additionalProperties": false
			}`),
			Handler: handleRunWorkflow,
		},
	}
}

func handleListWorkflows(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx, inv.Auth, listOpts(inv.Args))
}

func handleGetWorkflow(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	return svc.FindByID(ctx, inv.Auth, workflowID)
}

func handleCreateWorkflow(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	def, err := requiredMapArg(inv.Args, "definition")
	if err != nil {
		return nil, err
	}
	created, err := svc.Create(ctx, inv.Auth, def)
	if err != nil {
		return nil, err
	}
	id, _ := created["id"].(string)
	name, _ := created["name"].(string)
	emitAudit(ctx, inv, "workflow.create", audit.ResourceWorkflow, id, name, nil)
	return created, nil
}

func handleUpdateWorkflow(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	def, err := requiredMapArg(inv.Args, "definition")
	if err != nil {
		return nil, err
	}
	updated, err := svc.Update(ctx, inv.Auth, workflowID, def)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "workflow.update", audit.ResourceWorkflow, workflowID, "", nil)
	return updated, nil
}

func handleUpdateWorkflowMetadata(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	meta, err := requiredMapArg(inv.Args, "metadata")
	if err != nil {
		return nil, err
	}
	updated, err := svc.UpdateMetadata(ctx, inv.Auth, workflowID, meta)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "workflow.update", audit.ResourceWorkflow, workflowID, "", map[string]any{
		"metadataOnly": true,
	})
	return updated, nil
}

func handleDeleteWorkflow(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireWorkflows()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	if err := svc.Delete(ctx, inv.Auth, workflowID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "workflow.delete", audit.ResourceWorkflow, workflowID, "", nil)
	return map[string]any{"deleted": true, "workflowId": workflowID}, nil
}

// handleRunWorkflow is the one task-supporting tool. Beyond workflows.run
// (gated by the dispatcher) the caller also needs runs.read, since the task
// monitor exposes run status back through the task handle.
func handleRunWorkflow(ctx context.Context, inv *Invocation) (any, error) {
	if err := permissions.Check(inv.Auth, "runs.read"); err != nil {
		return nil, err
	}
	engine, err := inv.Deps.RequireTasks()
	if err != nil {
		return nil, err
	}
	workflowID, err := stringArg(inv.Args, "workflowId")
	if err != nil {
		return nil, err
	}
	inputs, err := mapArg(inv.Args, "inputs")
	if err != nil {
		return nil, err
	}

	snap, err := engine.StartRun(ctx, inv.Auth, workflowID, inputs)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "workflow.run", audit.ResourceRun, snap.RunID, "", map[string]any{
		"workflowId": workflowID,
		"taskId":     snap.TaskID,
	})
	return map[string]any{
		"taskId": snap.TaskID,
		"runId":  snap.RunID,
		"state":  snap.State,
	}, nil
}
