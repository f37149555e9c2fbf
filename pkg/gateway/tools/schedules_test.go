// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

func scheduleDeps(svc services.ScheduleService) *Deps {
	return &Deps{Services: &services.Deps{Schedules: svc}}
}

func TestScheduleDTOFromArgsNestsInputs(t *testing.T) {
	t.Parallel()

	dto, err := scheduleDTOFromArgs(map[string]any{
		"name":           "nightly",
		"workflowId":     "wf-1",
		"cronExpression": "0 2 * * *",
		"timezone":       "Europe/Berlin",
		"enabled":        true,
		"inputs":         map[string]any{"region": "eu"},
	})
	require.NoError(t, err)

	require.NotNil(t, dto.InputPayload)
	assert.Equal(t, map[string]any{"region": "eu"}, dto.InputPayload.RuntimeInputs)
	assert.Equal(t, map[string]any{}, dto.InputPayload.NodeOverrides)
	require.NotNil(t, dto.Enabled)
	assert.True(t, *dto.Enabled)

	// The wire payload must carry only the nested shape: inputPayload with
	// runtimeInputs/nodeOverrides, never a flat "inputs" key.
	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.NotContains(t, wire, "inputs")
	payload, ok := wire["inputPayload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"region": "eu"}, payload["runtimeInputs"])
	assert.Equal(t, map[string]any{}, payload["nodeOverrides"])
}

func TestScheduleDTOFromArgsWithoutInputs(t *testing.T) {
	t.Parallel()

	dto, err := scheduleDTOFromArgs(map[string]any{
		"workflowId":     "wf-1",
		"cronExpression": "@hourly",
	})
	require.NoError(t, err)
	assert.Nil(t, dto.InputPayload)
	assert.Nil(t, dto.Enabled)

	// Omitted nested payload stays off the wire entirely.
	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.NotContains(t, wire, "inputPayload")
}

func TestScheduleDTOFromArgsRejectsNonObjectInputs(t *testing.T) {
	t.Parallel()

	_, err := scheduleDTOFromArgs(map[string]any{
		"workflowId": "wf-1",
		"inputs":     "flat string",
	})
	assert.ErrorIs(t, err, gateway.ErrInvalidInput)
}

func TestHandleCreateSchedulePassesDTO(t *testing.T) {
	t.Parallel()

	var got services.ScheduleDTO
	svc := &fakeScheduleService{
		createFn: func(_ context.Context, _ *auth.AuthContext, dto services.ScheduleDTO) (map[string]any, error) {
			got = dto
			return map[string]any{"id": "sched-1"}, nil
		},
	}

	inv := &Invocation{
		Auth: memberAuth(),
		Deps: scheduleDeps(svc),
		Args: map[string]any{
			"workflowId":     "wf-1",
			"cronExpression": "0 * * * *",
			"inputs":         map[string]any{"env": "prod"},
		},
	}
	result, err := handleCreateSchedule(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, "0 * * * *", got.CronExpression)
	require.NotNil(t, got.InputPayload)
	assert.Equal(t, map[string]any{"env": "prod"}, got.InputPayload.RuntimeInputs)

	created, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sched-1", created["id"])
}

func TestHandleTriggerSchedule(t *testing.T) {
	t.Parallel()

	svc := &fakeScheduleService{
		triggerFn: func(_ context.Context, _ *auth.AuthContext, scheduleID string) (string, error) {
			assert.Equal(t, "sched-1", scheduleID)
			return "run-9", nil
		},
	}

	inv := &Invocation{
		Auth: memberAuth(),
		Deps: scheduleDeps(svc),
		Args: map[string]any{"scheduleId": "sched-1"},
	}
	result, err := handleTriggerSchedule(context.Background(), inv)
	require.NoError(t, err)

	out, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "run-9", out["runId"])
	assert.Equal(t, true, out["triggered"])
}
