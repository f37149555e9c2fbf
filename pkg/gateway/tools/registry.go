// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tools hosts the gateway's MCP tool catalog and the dispatcher
// that validates inputs, gates on permissions and shapes results into MCP
// content envelopes.
//
// Tools never receive caller identity from the MCP client: the AuthContext
// is captured when the session's tool set is built (see ForSession) and is
// immutable for the session's lifetime.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/runstatus"
	"github.com/studiomcp/gateway/pkg/gateway/services"
	"github.com/studiomcp/gateway/pkg/gateway/tasks"
	"github.com/studiomcp/gateway/pkg/telemetry"
)

// Kind distinguishes synchronous tools from task-supporting ones.
type Kind string

// Tool dispatch kinds.
const (
	KindSync Kind = "sync"
	KindTask Kind = "task"
)

// Deps is the explicit dependencies record handed to the dispatcher at
// session construction. Audit and Metrics are nil-safe; Tasks and RunStatus
// are checked by the tools that need them.
type Deps struct {
	Services  *services.Deps
	Tasks     *tasks.Engine
	RunStatus *runstatus.Resolver
	Audit     *audit.Emitter
	Metrics   *telemetry.Metrics
}

// RequireTasks returns the task engine or an unavailability error.
func (d *Deps) RequireTasks() (*tasks.Engine, error) {
	if d == nil || d.Tasks == nil {
		return nil, fmt.Errorf("task engine %w", gateway.ErrServiceUnavailable)
	}
	return d.Tasks, nil
}

// RequireRunStatus returns the run-status resolver or an unavailability error.
func (d *Deps) RequireRunStatus() (*runstatus.Resolver, error) {
	if d == nil || d.RunStatus == nil {
		return nil, fmt.Errorf("run status %w", gateway.ErrServiceUnavailable)
	}
	return d.RunStatus, nil
}

// Invocation carries one tool call's inputs to its handler.
type Invocation struct {
	// Auth is the session-bound caller identity. Never sourced from tool
	// arguments.
	Auth *auth.AuthContext

	Deps *Deps
	Args map[string]any
}

// Handler executes one tool call. The returned value is JSON-stringified
// into the MCP text content envelope; errors become isError results.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// Definition is one tool in the catalog.
type Definition struct {
	Name        string
	Description string

	// InputSchema is the JSON Schema the arguments are validated against
	// before the handler runs.
	InputSchema json.RawMessage

	// Permission is the dotted "scope.action" path gated against the
	// caller's capability matrix. Empty means always allowed.
	Permission string

	Kind    Kind
	Handler Handler
}

// Catalog returns the full tool set, in presentation order.
func Catalog() []Definition {
	var defs []Definition
	defs = append(defs, workflowTools()...)
	defs = append(defs, runTools()...)
	defs = append(defs, taskTools()...)
	defs = append(defs, componentTools()...)
	defs = append(defs, artifactTools()...)
	defs = append(defs, scheduleTools()...)
	defs = append(defs, secretTools()...)
	defs = append(defs, humanInputTools()...)
	return defs
}

// emitAudit records a security-relevant action on behalf of the invocation's
// principal. Best-effort: the emitter swallows write failures.
func emitAudit(ctx context.Context, inv *Invocation, action, resourceType, resourceID, resourceName string, md map[string]any) {
	inv.Deps.Audit.Emit(ctx, audit.Record{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
		Actor:        inv.Auth.PrincipalID,
		TenantID:     inv.Auth.TenantID,
		Metadata:     md,
	})
}
