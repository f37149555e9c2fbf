// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"

	"github.com/studiomcp/gateway/pkg/audit"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

func scheduleTools() []Definition {
	return []Definition{
		{
			Name:        "list_schedules",
			Description: "List workflow schedules.",
			Permission:  "schedules.list",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1, "maximum": 200},
					"offset": {"type": "integer", "minimum": 0}
				},
				"additionalProperties": false
			}`),
			Handler: handleListSchedules,
		},
		{
			Name:        "get_schedule",
			Description: "Fetch one schedule by ID.",
			Permission:  "schedules.read",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"scheduleId": {"type": "string"}
				},
				"required": ["scheduleId"],
				"additionalProperties": false
			}`),
			Handler: handleGetSchedule,
		},
		{
			Name:        "create_schedule",
			Description: "Create a cron schedule for a workflow.",
			Permission:  "schedules.create",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"workflowId": {"type": "string"},
					"cronExpression": {"type": "string"},
					"timezone": {"type": "string"},
					"enabled": {"type": "boolean"},
					"inputs": {"type": "object"}
				},
				"required": ["workflowId", "cronExpression"],
				"additionalProperties": false
			}`),
			Handler: handleCreateSchedule,
		},
		{
			Name:        "update_schedule",
			Description: "Update a schedule's cron expression, timezone, inputs or enabled flag.",
			Permission:  "schedules.update",
			Kind:        KindSync,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"scheduleId": {"type": "string"},
					"name": {"type": "string"},
					"cronExpression": {"type": "string"},
					"timezone": {"type": "string"},
					"enabled": {"type": "boolean"},
					"inputs": {"type": "object"}
				},
				"required": ["scheduleId"],
				"additionalProperties": false
			}`),
			Handler: handleUpdateSchedule,
		},
		{
			Name:        "pause_schedule",
			Description: "Pause a schedule without deleting it.",
			Permission:  "schedules.update",
			Kind:        KindSync,
			InputSchema: scheduleIDSchema,
			Handler:     handlePauseSchedule,
		},
		{
			Name:        "resume_schedule",
			Description: "Resume a paused schedule.",
			Permission:  "schedules.update",
			Kind:        KindSync,
			InputSchema: scheduleIDSchema,
			Handler:     handleResumeSchedule,
		},
		{
			Name:        "trigger_schedule",
			Description: "Run a schedule's workflow immediately, outside its cron cadence.",
			Permission:  "schedules.update",
			Kind:        KindSync,
			InputSchema: scheduleIDSchema,
			Handler:     handleTriggerSchedule,
		},
		{
			Name:        "delete_schedule",
			Description: "Delete a schedule.",
			Permission:  "schedules.delete",
			Kind:        KindSync,
			InputSchema: scheduleIDSchema,
			Handler:     handleDeleteSchedule,
		},
	}
}

var scheduleIDSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"scheduleId": {"type": "string"}
	},
	"required": ["scheduleId"],
	"additionalProperties": false
}`)

func handleListSchedules(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	return svc.List(ctx, inv.Auth, listOpts(inv.Args))
}

func handleGetSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	return svc.Get(ctx, inv.Auth, scheduleID)
}

// scheduleDTOFromArgs translates the tool-level arguments into the service
// DTO. The flat "inputs" mapping becomes inputPayload.runtimeInputs with an
// empty nodeOverrides; the flat field itself never reaches the service.
func scheduleDTOFromArgs(args map[string]any) (services.ScheduleDTO, error) {
	dto := services.ScheduleDTO{
		Name:           optStringArg(args, "name", ""),
		WorkflowID:     optStringArg(args, "workflowId", ""),
		CronExpression: optStringArg(args, "cronExpression", ""),
		Timezone:       optStringArg(args, "timezone", ""),
		Enabled:        optBoolArg(args, "enabled"),
	}
	inputs, err := mapArg(args, "inputs")
	if err != nil {
		return services.ScheduleDTO{}, err
	}
	if inputs != nil {
		dto.InputPayload = &services.InputPayload{
			RuntimeInputs: inputs,
			NodeOverrides: map[string]any{},
		}
	}
	return dto, nil
}

func handleCreateSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	dto, err := scheduleDTOFromArgs(inv.Args)
	if err != nil {
		return nil, err
	}
	created, err := svc.Create(ctx, inv.Auth, dto)
	if err != nil {
		return nil, err
	}
	id, _ := created["id"].(string)
	emitAudit(ctx, inv, "schedule.create", audit.ResourceSchedule, id, dto.Name, map[string]any{
		"workflowId": dto.WorkflowID,
	})
	return created, nil
}

func handleUpdateSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	dto, err := scheduleDTOFromArgs(inv.Args)
	if err != nil {
		return nil, err
	}
	updated, err := svc.Update(ctx, inv.Auth, scheduleID, dto)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "schedule.update", audit.ResourceSchedule, scheduleID, dto.Name, nil)
	return updated, nil
}

func handlePauseSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	if err := svc.Pause(ctx, inv.Auth, scheduleID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "schedule.pause", audit.ResourceSchedule, scheduleID, "", nil)
	return map[string]any{"paused": true, "scheduleId": scheduleID}, nil
}

func handleResumeSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	if err := svc.Resume(ctx, inv.Auth, scheduleID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "schedule.resume", audit.ResourceSchedule, scheduleID, "", nil)
	return map[string]any{"resumed": true, "scheduleId": scheduleID}, nil
}

func handleTriggerSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	runID, err := svc.Trigger(ctx, inv.Auth, scheduleID)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "schedule.trigger", audit.ResourceSchedule, scheduleID, "", map[string]any{
		"runId": runID,
	})
	return map[string]any{"triggered": true, "scheduleId": scheduleID, "runId": runID}, nil
}

func handleDeleteSchedule(ctx context.Context, inv *Invocation) (any, error) {
	svc, err := inv.Deps.Services.RequireSchedules()
	if err != nil {
		return nil, err
	}
	scheduleID, err := stringArg(inv.Args, "scheduleId")
	if err != nil {
		return nil, err
	}
	if err := svc.Delete(ctx, inv.Auth, scheduleID); err != nil {
		return nil, err
	}
	emitAudit(ctx, inv, "schedule.delete", audit.ResourceSchedule, scheduleID, "", nil)
	return map[string]any{"deleted": true, "scheduleId": scheduleID}, nil
}
