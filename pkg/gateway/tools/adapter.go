// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/permissions"
	"github.com/studiomcp/gateway/pkg/telemetry"
)

// ForSession builds the SDK tool set for one session, with every handler
// closed over the session's AuthContext. The MCP client can therefore never
// supply or alter the identity a tool runs as.
//
// Each handler runs the same pipeline: schema validation, permission gate,
// tool handler, result shaping. Validation failures and permission denials
// are tool-level errors (isError results), never transport-level errors.
func ForSession(ac *auth.AuthContext, deps *Deps, log *slog.Logger) ([]mcpserver.ServerTool, error) {
	if log == nil {
		log = slog.Default()
	}

	catalog := Catalog()
	sdkTools := make([]mcpserver.ServerTool, 0, len(catalog))
	for _, def := range catalog {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("invalid input schema for tool %s: %w", def.Name, err)
		}

		sdkTools = append(sdkTools, mcpserver.ServerTool{
			Tool: mcp.Tool{
				Name:           def.Name,
				Description:    def.Description,
				RawInputSchema: def.InputSchema,
			},
			Handler: dispatchHandler(def, schema, ac, deps, log),
		})
	}
	return sdkTools, nil
}

func dispatchHandler(
	def Definition,
	schema *gojsonschema.Schema,
	ac *auth.AuthContext,
	deps *Deps,
	log *slog.Logger,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := req.Params.Arguments.(map[string]any)
		if !ok {
			if req.Params.Arguments == nil {
				args = map[string]any{}
			} else {
				deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeError)
				return mcp.NewToolResultError(fmt.Sprintf(
					"arguments must be an object, got %T", req.Params.Arguments)), nil
			}
		}

		if msg, valid := validateArgs(schema, args); !valid {
			deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeError)
			return mcp.NewToolResultError(msg), nil
		}

		// Permission gate: denials short-circuit before any backing service
		// is reached.
		if err := permissions.Check(ac, def.Permission); err != nil {
			if permissions.IsDenied(err) {
				log.Debug("tool call denied",
					"tool", def.Name,
					"permission", def.Permission,
					"principal", ac.PrincipalID)
				deps.Metrics.RecordDenial(def.Permission)
				deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeDenied)
			} else {
				deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeError)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := def.Handler(ctx, &Invocation{Auth: ac, Deps: deps, Args: args})
		if err != nil {
			log.Debug("tool call failed", "tool", def.Name, "error", err)
			deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeError)
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeError)
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		deps.Metrics.RecordToolCall(def.Name, telemetry.OutcomeSuccess)
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// validateArgs checks the arguments against the tool's input schema and
// returns a human-readable message on failure.
func validateArgs(schema *gojsonschema.Schema, args map[string]any) (string, bool) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Sprintf("input validation error: %v", err), false
	}
	if result.Valid() {
		return "", true
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return "invalid input: " + strings.Join(msgs, "; "), false
}
