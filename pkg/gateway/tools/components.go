// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
)

// Components are the global, read-only building blocks of workflows; no
// permission path applies.
func componentTools() []Definition {
	return []Definition{
		{
			Name:        "list_components",
			Description: "List the component catalog available for building workflows.",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			Handler: handleListComponents,
		},
		{
			Name:        "get_component",
			Description: "Fetch one component's schema and documentation by reference.",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"ref": {"type": "string"}
				},
				"required": ["ref"],
				"additionalProperties": false
			}`),
			Handler: handleGetComponent,
		},
	}
}

func handleListComponents(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireComponents()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx)
}

func handleGetComponent(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireComponents()
	if err != nil {
		return nil, err
	}
	ref, err := stringArg(inv.Args, "ref")
	if err != nil {
		return nil, err
	}
	return svc.Get(ctx, ref)
}
