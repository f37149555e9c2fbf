// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/studiomcp/gateway/pkg/audit"
)

// Secret values transit through create_secret and rotate_secret only; no
// tool ever returns a value, and audit metadata never includes one.
func secretTools() []Definition {
	return []Definition{
		{
			Name:        "list_secrets",
			Description: "List secret metadata. Values are never returned.",
			Permission:  "secrets.list",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
			Handler: handleListSecrets,
		},
		{
			Name:        "create_secret",
			Description: "Create a named secret.",
			Permission:  "secrets.create",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"value": {"type": "string"},
					"description": {"type": "string"}
				},
				"required": ["name", "value"],
				"additionalProperties": false
			}`),
			Handler: handleCreateSecret,
		},
		{
			Name:        "rotate_secret",
			Description: "Replace a secret's value, keeping its identity.",
			Permission:  "secrets.update",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"secretId": {"type": "string"},
					"value": {"type": "string"}
				},
				"required": ["secretId", "value"],
				"additionalProperties": false
			}`),
			Handler: handleRotateSecret,
		},
		{
			Name:        "update_secret",
			Description: "Update a secret's name or description.",
			Permission:  "secrets.update",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"secretId": {"type": "string"},
					"name": {"type": "string"},
					"description": {"type": "string"}
				},
				"required": ["secretId"],
				"additionalProperties": false
			}`),
			Handler: handleUpdateSecret,
		},
		{
			Name:        "delete_secret",
			Description: "Delete a secret.",
			Permission:  "secrets.delete",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"secretId": {"type": "string"}
				},
				"required": ["secretId"],
				"additionalProperties": false
			}`),
			Handler: handleDeleteSecret,
		},
	}
}

func handleListSecrets(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSecrets()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx, inv.Auth)
}

func handleCreateSecret(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSecrets()
	if err != nil {
		return nil, err
	}
	name, err := stringArg(inv.Args, "name")
	if err != nil {
		return nil, err
	}
	value, err := stringArg(inv.Args, "value")
	if err != nil {
		return nil, err
	}
	meta, err := svc.Create(ctx, inv.Auth, name, value, optStringArg(inv.Args, "description", ""))
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "secret.create", audit.ResourceSecret, meta.ID, meta.Name, nil)
	return meta, nil
}

func handleRotateSecret(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSecrets()
	if err != nil {
		return nil, err
	}
	secretID, err := stringArg(inv.Args, "secretId")
	if err != nil {
		return nil, err
	}
	value, err := stringArg(inv.Args, "value")
	if err != nil {
		return nil, err
	}
	meta, err := svc.Rotate(ctx, inv.Auth, secretID, value)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "secret.rotate", audit.ResourceSecret, meta.ID, meta.Name, nil)
	return meta, nil
}

func handleUpdateSecret(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSecrets()
	if err != nil {
		return nil, err
	}
	secretID, err := stringArg(inv.Args, "secretId")
	if err != nil {
		return nil, err
	}
	patch := map[string]any{}
	if name := optStringArg(inv.Args, "name", ""); name != "" {
		patch["name"] = name
	}
	if desc := optStringArg(inv.Args, "description", ""); desc != "" {
		patch["description"] = desc
	}
	meta, err := svc.Update(ctx, inv.Auth, secretID, patch)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "secret.update", audit.ResourceSecret, meta.ID, meta.Name, nil)
	return meta, nil
}

func handleDeleteSecret(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSecrets()
	if err != nil {
		return nil, err
	}
	secretID, err := stringArg(inv.Args, "secretId")
	if err != nil {
		return nil, err
	}
	if err := svc.Delete(ctx, inv.Auth, secretID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "secret.delete", audit.ResourceSecret, secretID, "", nil)
	return map[string]any{"deleted": true, "secretId": secretID}, nil
}
