// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/runstatus"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

const (
	// DefaultTaskTTL is how long a task remains queryable.
	DefaultTaskTTL = 12 * time.Hour

	// defaultPollInterval is the monitor's cadence between status polls.
	defaultPollInterval = 2 * time.Second
)

// Engine creates tasks for long-running workflow runs and monitors them to
// completion. Monitors are detached goroutines owned by the process; they
// survive the session that created the task.
type Engine struct {
	store        *Store
	resolver     *runstatus.Resolver
	workflows    services.WorkflowService
	taskTTL      time.Duration
	pollInterval time.Duration
	log          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTaskTTL overrides the default 12h task TTL.
func WithTaskTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.taskTTL = ttl }
}

// WithPollInterval overrides the monitor poll cadence. Used by tests.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// NewEngine creates a task engine.
func NewEngine(
	store *Store,
	resolver *runstatus.Resolver,
	workflows services.WorkflowService,
	log *slog.Logger,
	opts ...Option,
) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		store:        store,
		resolver:     resolver,
		workflows:    workflows,
		taskTTL:      DefaultTaskTTL,
		pollInterval: defaultPollInterval,
		log:          log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the task store for the task-query tools.
func (e *Engine) Store() *Store {
	return e.store
}

// StartRun creates a task, starts the workflow run, and spawns the monitor.
// If the engine-client call fails the task is finalized as failed before the
// error is returned.
func (e *Engine) StartRun(
	ctx context.Context,
	ac *auth.AuthContext,
	workflowID string,
	inputs map[string]any,
) (Snapshot, error) {
	task := e.store.Create(e.taskTTL)

	runID, err := e.workflows.Run(ctx, ac, workflowID, inputs)
	if err != nil {
		_ = e.store.StoreTaskResult(task.ID(), StateFailed, errorPayload(err))
		return task.Snapshot(), fmt.Errorf("failed to start workflow run: %w", err)
	}
	if bindErr := e.store.BindRun(task.ID(), runID); bindErr != nil {
		// Task evicted between Create and BindRun; can only happen with a
		// pathological TTL. The run is already started, so report it.
		return Snapshot{}, fmt.Errorf("failed to bind run %s to task: %w", runID, bindErr)
	}

	// Monitor runs detached: it must never hold the tool response open, and
	// it outlives both the request and the session.
	monitorCtx := context.WithoutCancel(ctx)
	go e.monitor(monitorCtx, ac.TenantID, task.ID(), runID)

	e.log.Info("background task started",
		"task_id", task.ID(),
		"run_id", runID,
		"workflow_id", workflowID,
		"tenant_id", ac.TenantID)
	return task.Snapshot(), nil
}

// Cancel cancels the task's underlying workflow run and finalizes the task
// as cancelled. If the monitor finalizes first, its write wins and this
// one is dropped by the store; both orders leave the task terminal.
func (e *Engine) Cancel(ctx context.Context, ac *auth.AuthContext, taskID string) (Snapshot, error) {
	task, err := e.store.Get(taskID)
	if err != nil {
		return Snapshot{}, err
	}
	runID := task.RunID()
	if runID == "" {
		return Snapshot{}, fmt.Errorf("%w: task has no run bound yet", gateway.ErrInvalidInput)
	}

	if err := e.workflows.CancelRun(ctx, ac, runID); err != nil {
		return Snapshot{}, fmt.Errorf("failed to cancel run %s: %w", runID, err)
	}

	if err := e.store.StoreTaskResult(taskID, StateCancelled, map[string]any{
		"runId":     runID,
		"cancelled": true,
	}); err != nil {
		// Already terminal from the monitor; keep whatever state won.
		e.log.Debug("cancel finalization skipped", "task_id", taskID, "error", err)
	}
	return task.Snapshot(), nil
}

// mapTaskState maps an engine-observed run status to a task state and
// reports whether the run is terminal.
func mapTaskState(status gateway.RunStatus) (State, bool) {
	switch status {
	case gateway.RunStatusCompleted:
		return StateCompleted, true
	case gateway.RunStatusCancelled, gateway.RunStatusTerminated, gateway.RunStatusTimedOut:
		return StateCancelled, true
	case gateway.RunStatusFailed:
		return StateFailed, true
	default:
		return StateWorking, false
	}
}

// storeStateFor returns the state written by the terminal StoreTaskResult
// call: completed for COMPLETED, failed for everything else.
func storeStateFor(status gateway.RunStatus) State {
	if status == gateway.RunStatusCompleted {
		return StateCompleted
	}
	return StateFailed
}

// monitor polls the run's status until it is terminal, then writes the
// result. On the terminal transition it calls StoreTaskResult directly —
// never UpdateTaskStatus first, since a prior terminal UpdateTaskStatus
// would lock the task out of the result write.
func (e *Engine) monitor(ctx context.Context, tenantID, taskID, runID string) {
	for {
		status, err := e.resolver.Resolve(ctx, tenantID, runID)
		if err != nil {
			e.failTask(taskID, runID, err)
			return
		}

		state, terminal := mapTaskState(status.Status)
		if !terminal {
			if err := e.store.UpdateTaskStatus(taskID, state, string(status.Status)); err != nil {
				// Terminal from a concurrent path (explicit cancel) or
				// evicted; either way the monitor is done.
				e.log.Debug("monitor stopping: task no longer updatable",
					"task_id", taskID, "error", err)
				return
			}
			select {
			case <-time.After(e.pollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		e.finalize(ctx, tenantID, taskID, runID, status.Status)
		return
	}
}

func (e *Engine) finalize(ctx context.Context, tenantID, taskID, runID string, status gateway.RunStatus) {
	payload := map[string]any{
		"runId":  runID,
		"status": string(status),
	}

	if status == gateway.RunStatusCompleted {
		result, err := e.fetchResult(ctx, tenantID, runID)
		if err != nil {
			e.log.Warn("failed to fetch run result for completed task",
				"task_id", taskID, "run_id", runID, "error", err)
		} else {
			payload["result"] = result
		}
	}

	if err := e.store.StoreTaskResult(taskID, storeStateFor(status), payload); err != nil {
		e.log.Debug("terminal write skipped: task already terminal",
			"task_id", taskID, "error", err)
		return
	}
	e.log.Info("background task finished",
		"task_id", taskID,
		"run_id", runID,
		"status", string(status))
}

// fetchResult pulls the completed run's result through the workflow service
// using a tenant-scoped surrogate context (the monitor has no live request).
func (e *Engine) fetchResult(ctx context.Context, tenantID, runID string) (map[string]any, error) {
	ac := &auth.AuthContext{
		PrincipalID:   "task-monitor",
		TenantID:      tenantID,
		Authenticated: true,
		Provider:      "internal",
	}
	result, err := e.workflows.GetRunResult(ctx, ac, runID)
	if err != nil {
		return nil, err
	}
	// Round-trip through JSON so the stored payload holds plain data, not
	// service-internal types.
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// failTask attempts a single terminal failed write. If that too fails
// (typically: already terminal from a concurrent path) the error is
// swallowed — the monitor never escalates.
func (e *Engine) failTask(taskID, runID string, cause error) {
	e.log.Warn("task monitor failed", "task_id", taskID, "run_id", runID, "error", cause)
	if err := e.store.StoreTaskResult(taskID, StateFailed, errorPayload(cause)); err != nil {
		e.log.Debug("failed-state write skipped", "task_id", taskID, "error", err)
	}
}

func errorPayload(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
