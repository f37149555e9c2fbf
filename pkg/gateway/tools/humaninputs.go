// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/studiomcp/gateway/pkg/audit"
)

func humanInputTools() []Definition {
	return []Definition{
		{
			Name:        "list_human_inputs",
			Description: "List pending and resolved human-input requests.",
			Permission:  "human-inputs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1, "maximum": 200},
					"offset": {"type": "integer", "minimum": 0}
				},
				"additionalProperties": false
			}`),
			Handler: handleListHumanInputs,
		},
		{
			Name:        "get_human_input",
			Description: "Fetch one human-input request by ID.",
			Permission:  "human-inputs.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"inputId": {"type": "string"}
				},
				"required": ["inputId"],
				"additionalProperties": false
			}`),
			Handler: handleGetHumanInput,
		},
		{
			Name:        "resolve_human_input",
			Description: "Approve or reject a pending human-input request.",
			Permission:  "human-inputs.resolve",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"inputId": {"type": "string"},
					"action": {"type": "string", "enum": ["approve", "reject"]},
					"data": {"type": "object"}
				},
				"required": ["inputId", "action"],
				"additionalProperties": false
			}`),
			Handler: handleResolveHumanInput,
		},
	}
}

func handleListHumanInputs(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireHumanInputs()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx, inv.Auth, listOpts(inv.Args))
}

func handleGetHumanInput(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireHumanInputs()
	if err != nil {
		return nil, err
	}
	inputID, err := stringArg(inv.Args, "inputId")
	if err != nil {
		return nil, err
	}
	return svc.Get(ctx, inv.Auth, inputID)
}

// handleResolveHumanInput builds the response data by copying the caller's
// data first and setting the server-derived status last. The order matters:
// a caller-supplied data.status must never survive into the service call.
func handleResolveHumanInput(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireHumanInputs()
	if err != nil {
		return nil, err
	}
	inputID, err := stringArg(inv.Args, "inputId")
	if err != nil {
		return nil, err
	}
	action, err := stringArg(inv.Args, "action")
	if err != nil {
		return nil, err
	}
	data, err := mapArg(inv.Args, "data")
	if err != nil {
		return nil, err
	}

	responseData := make(map[string]any, len(data)+1)
	for k, v := range data {
		responseData[k] = v
	}
	status := "approved"
	if action == "reject" {
		status = "rejected"
	}
	responseData["status"] = status

	resolved, err := svc.Resolve(ctx, inv.Auth, inputID, responseData)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "human-input.resolve", audit.ResourceHumanInput, inputID, "", map[string]any{
		"action": action,
	})
	return resolved, nil
}
