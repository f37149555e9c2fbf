// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package services defines the typed boundary between the gateway and its
// backing services: workflow engine, schedules, secrets, artifacts, trace,
// logs, node I/O and human inputs.
//
// The tool dispatcher never speaks to backing services directly; it goes
// through these interfaces so that service unavailability is a first-class
// case (a structured tool error, not a crash). Every call is tenant-scoped:
// services that accept an AuthContext derive the tenant from it, legacy
// surfaces take the tenant ID as an explicit parameter.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
)

// ListOptions carries paging parameters for listing operations.
type ListOptions struct {
	Limit  int
	Offset int
}

// WorkflowService manages workflow definitions and their runs.
type WorkflowService interface {
	List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error)
	FindByID(ctx context.Context, ac *auth.AuthContext, workflowID string) (map[string]any, error)
	Create(ctx context.Context, ac *auth.AuthContext, def map[string]any) (map[string]any, error)
	Update(ctx context.Context, ac *auth.AuthContext, workflowID string, def map[string]any) (map[string]any, error)
	UpdateMetadata(ctx context.Context, ac *auth.AuthContext, workflowID string, meta map[string]any) (map[string]any, error)
	Delete(ctx context.Context, ac *auth.AuthContext, workflowID string) error

	// Run starts a workflow execution and returns the new run ID.
	Run(ctx context.Context, ac *auth.AuthContext, workflowID string, inputs map[string]any) (string, error)

	ListRuns(ctx context.Context, ac *auth.AuthContext, workflowID string, opts ListOptions) ([]map[string]any, error)
	GetRunResult(ctx context.Context, ac *auth.AuthContext, runID string) (map[string]any, error)
	GetRunConfig(ctx context.Context, ac *auth.AuthContext, runID string) (map[string]any, error)
	ListChildRuns(ctx context.Context, ac *auth.AuthContext, runID string) ([]map[string]any, error)
	CancelRun(ctx context.Context, ac *auth.AuthContext, runID string) error

	// EnsureRunAccess fails with gateway.ErrNotFound when the run does not
	// belong to the caller's tenant. It must be called before any by-ID read
	// that bypasses tenant filtering (node I/O in particular).
	EnsureRunAccess(ctx context.Context, ac *auth.AuthContext, runID string) error
}

// EngineRunState is the engine's view of a run.
type EngineRunState struct {
	Status    string
	CloseTime *time.Time
}

// EngineClient is the low-level workflow engine surface consumed by the
// run-status resolver. DescribeRun fails with gateway.ErrNotFound when the
// engine has no record of the run.
type EngineClient interface {
	DescribeRun(ctx context.Context, runID string) (*EngineRunState, error)
}

// RunRepository stores run records and the terminal-status cache.
type RunRepository interface {
	// GetRun loads a stored run record, failing with gateway.ErrNotFound
	// when the run does not exist or is outside the tenant.
	GetRun(ctx context.Context, tenantID, runID string) (*gateway.RunRecord, error)

	// CacheTerminalStatus records a terminal status for a run. The cache is
	// monotonic: implementations never overwrite an existing terminal status.
	CacheTerminalStatus(ctx context.Context, runID string, status gateway.RunStatus, closeTime time.Time) error
}

// TraceService exposes per-run trace events. A legacy surface: it takes the
// tenant ID explicitly rather than an AuthContext.
type TraceService interface {
	CountEvents(ctx context.Context, tenantID, runID string) (gateway.TraceCounts, error)
	ListEvents(ctx context.Context, tenantID, runID string, opts ListOptions) ([]map[string]any, error)
}

// LogService streams run logs. Legacy surface (explicit tenant ID).
type LogService interface {
	GetRunLogs(ctx context.Context, tenantID, runID string, opts ListOptions) ([]map[string]any, error)
}

// NodeIOService reads node-level inputs and outputs. Legacy surface; callers
// must run the engine's tenant-access check first because node I/O rows are
// addressed by opaque ID.
type NodeIOService interface {
	ListRunNodeIO(ctx context.Context, tenantID, runID string) ([]map[string]any, error)
	GetNodeIO(ctx context.Context, tenantID, nodeIOID string) (map[string]any, error)
}

// Artifact is the normalized artifact descriptor presented to tools.
type Artifact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	RunID     string    `json:"runId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// ArtifactDownload is the result of fetching an artifact's content.
type ArtifactDownload struct {
	Buffer   []byte
	Artifact Artifact
}

// ArtifactService manages stored artifacts. List responses arrive in
// whatever shape the backing service produces (bare array, {"artifacts": …}
// or {"items": …}); use NormalizeArtifactList to present one shape.
type ArtifactService interface {
	ListArtifacts(ctx context.Context, ac *auth.AuthContext, opts ListOptions) (json.RawMessage, error)
	ListRunArtifacts(ctx context.Context, ac *auth.AuthContext, runID string) (json.RawMessage, error)
	DownloadArtifact(ctx context.Context, ac *auth.AuthContext, artifactID string) (*ArtifactDownload, error)
	DeleteArtifact(ctx context.Context, ac *auth.AuthContext, artifactID string) error
}

// InputPayload is the nested inputs shape expected by the schedules service.
type InputPayload struct {
	RuntimeInputs map[string]any `json:"runtimeInputs"`
	NodeOverrides map[string]any `json:"nodeOverrides"`
}

// ScheduleDTO is the create/update payload for a schedule. The gateway
// translates the tool-level flat "inputs" mapping into InputPayload; a flat
// inputs field never reaches the service.
type ScheduleDTO struct {
	Name           string        `json:"name,omitempty"`
	WorkflowID     string        `json:"workflowId,omitempty"`
	CronExpression string        `json:"cronExpression,omitempty"`
	Timezone       string        `json:"timezone,omitempty"`
	Enabled        *bool         `json:"enabled,omitempty"`
	InputPayload   *InputPayload `json:"inputPayload,omitempty"`
}

// ScheduleService manages workflow schedules.
type ScheduleService interface {
	List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error)
	Get(ctx context.Context, ac *auth.AuthContext, scheduleID string) (map[string]any, error)
	Create(ctx context.Context, ac *auth.AuthContext, dto ScheduleDTO) (map[string]any, error)
	Update(ctx context.Context, ac *auth.AuthContext, scheduleID string, dto ScheduleDTO) (map[string]any, error)
	Pause(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
	Resume(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
	Trigger(ctx context.Context, ac *auth.AuthContext, scheduleID string) (string, error)
	Delete(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
}

// SecretMeta is the metadata-only view of a secret. Values are never listed.
type SecretMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// SecretService manages tenant secrets. The gateway never sees decrypted
// values except in transit on create/rotate.
type SecretService interface {
	List(ctx context.Context, ac *auth.AuthContext) ([]SecretMeta, error)
	Create(ctx context.Context, ac *auth.AuthContext, name, value, description string) (*SecretMeta, error)
	Rotate(ctx context.Context, ac *auth.AuthContext, secretID, value string) (*SecretMeta, error)
	Update(ctx context.Context, ac *auth.AuthContext, secretID string, patch map[string]any) (*SecretMeta, error)
	Delete(ctx context.Context, ac *auth.AuthContext, secretID string) error
}

// HumanInputService manages human-in-the-loop approval requests.
type HumanInputService interface {
	List(ctx context.Context, ac *auth.AuthContext, opts ListOptions) ([]map[string]any, error)
	Get(ctx context.Context, ac *auth.AuthContext, inputID string) (map[string]any, error)

	// Resolve answers a pending request. responseData already carries the
	// server-derived status; implementations must not alter it.
	Resolve(ctx context.Context, ac *auth.AuthContext, inputID string, responseData map[string]any) (map[string]any, error)

	// HasPendingForRun reports whether a pending human-input row exists for
	// the run. Legacy surface (explicit tenant ID).
	HasPendingForRun(ctx context.Context, tenantID, runID string) (bool, error)
}

// ComponentService exposes the component catalog. Components are global and
// read-only; no permission path applies.
type ComponentService interface {
	List(ctx context.Context) ([]map[string]any, error)
	Get(ctx context.Context, ref string) (map[string]any, error)
}
