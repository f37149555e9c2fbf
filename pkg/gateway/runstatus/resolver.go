// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package runstatus resolves a workflow run's current status.
//
// The resolver optimizes for terminal runs (served from the stored record
// without touching the workflow engine) while staying correct when the
// engine has forgotten the run: in that case the status is inferred from
// trace-event counts and never cached.
package runstatus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

// Status is a resolved run status with progress counters.
type Status struct {
	RunID            string             `json:"runId"`
	Status           gateway.RunStatus  `json:"status"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
	CompletedActions int                `json:"completedActions"`
	TotalActions     int                `json:"totalActions"`
	Inferred         bool               `json:"inferred,omitempty"`
}

// Resolver implements the cache-and-infer status machine.
type Resolver struct {
	runs        services.RunRepository
	engine      services.EngineClient
	trace       services.TraceService
	humanInputs services.HumanInputService
	log         *slog.Logger

	// wg tracks fire-and-forget terminal-cache writes so Close can drain
	// them at shutdown; their failures are logged, never propagated.
	wg sync.WaitGroup
}

// New creates a Resolver. humanInputs may be nil, in which case the
// AWAITING_INPUT override is skipped.
func New(
	runs services.RunRepository,
	engine services.EngineClient,
	trace services.TraceService,
	humanInputs services.HumanInputService,
	log *slog.Logger,
) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		runs:        runs,
		engine:      engine,
		trace:       trace,
		humanInputs: humanInputs,
		log:         log,
	}
}

// Resolve returns the run's current status.
//
// Cache hit: a stored terminal status is returned without consulting the
// engine. Cache miss: the engine is asked; terminal observations are cached
// fire-and-forget; engine NotFound falls back to trace inference. A RUNNING
// result is overridden to AWAITING_INPUT when a pending human-input row
// exists; the override is computed, never cached.
func (r *Resolver) Resolve(ctx context.Context, tenantID, runID string) (*Status, error) {
	record, err := r.runs.GetRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}

	counts, err := r.trace.CountEvents(ctx, tenantID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count trace events for run %s: %w", runID, err)
	}

	if record.HasTerminalStatus() {
		return &Status{
			RunID:            runID,
			Status:           record.Status,
			CompletedAt:      record.CloseTime,
			CompletedActions: counts.Completed,
			TotalActions:     record.TotalActions,
		}, nil
	}

	state, err := r.engine.DescribeRun(ctx, runID)
	switch {
	case err == nil:
		return r.fromEngine(ctx, tenantID, record, counts, state)
	case errors.Is(err, gateway.ErrNotFound):
		return r.fromTrace(record, counts), nil
	default:
		return nil, fmt.Errorf("failed to describe run %s: %w", runID, err)
	}
}

func (r *Resolver) fromEngine(
	ctx context.Context,
	tenantID string,
	record *gateway.RunRecord,
	counts gateway.TraceCounts,
	state *services.EngineRunState,
) (*Status, error) {
	status := gateway.NormalizeEngineStatus(state.Status)

	var completedAt *time.Time
	if status.IsTerminal() {
		closeTime := time.Now().UTC()
		if state.CloseTime != nil {
			closeTime = *state.CloseTime
		}
		completedAt = &closeTime
		r.cacheTerminal(ctx, record.ID, status, closeTime)
	}

	if status == gateway.RunStatusRunning {
		status = r.overrideAwaitingInput(ctx, tenantID, record.ID, status)
	}

	return &Status{
		RunID:            record.ID,
		Status:           status,
		CompletedAt:      completedAt,
		CompletedActions: counts.Completed,
		TotalActions:     record.TotalActions,
	}, nil
}

// fromTrace infers a status for a run the engine cannot find. Inferred
// statuses (STALE included) are surfaced but never cached, since the run
// may later become valid.
func (r *Resolver) fromTrace(record *gateway.RunRecord, counts gateway.TraceCounts) *Status {
	inferred := counts.InferStatus(record.TotalActions)
	r.log.Debug("inferred run status from trace events",
		"run_id", record.ID,
		"status", string(inferred),
		"started", counts.Started,
		"completed", counts.Completed,
		"failed", counts.Failed)

	return &Status{
		RunID:            record.ID,
		Status:           inferred,
		CompletedActions: counts.Completed,
		TotalActions:     record.TotalActions,
		Inferred:         true,
	}
}

// cacheTerminal schedules a fire-and-forget terminal-status cache write.
// The gateway continues even if the write fails; correctness is preserved
// by re-query, and the repository keeps the cache monotonic.
func (r *Resolver) cacheTerminal(ctx context.Context, runID string, status gateway.RunStatus, closeTime time.Time) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.runs.CacheTerminalStatus(detached, runID, status, closeTime); err != nil {
			r.log.Warn("terminal status cache write failed",
				"run_id", runID,
				"status", string(status),
				"error", err)
		}
	}()
}

func (r *Resolver) overrideAwaitingInput(ctx context.Context, tenantID, runID string, status gateway.RunStatus) gateway.RunStatus {
	if r.humanInputs == nil {
		return status
	}
	pending, err := r.humanInputs.HasPendingForRun(ctx, tenantID, runID)
	if err != nil {
		r.log.Warn("pending human-input check failed", "run_id", runID, "error", err)
		return status
	}
	if pending {
		return gateway.RunStatusAwaitingInput
	}
	return status
}

// Close waits for outstanding cache writes. Call during shutdown so
// detached writes do not outlive the process.
func (r *Resolver) Close() {
	r.wg.Wait()
}
