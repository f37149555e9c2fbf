// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package audit records security-relevant gateway actions.
//
// Emission is best-effort: an audit write failure must never fail the
// operation that triggered it. Writes are scheduled on detached goroutines;
// Close() drains in-flight writes so they do not outlive shutdown.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studiomcp/gateway/pkg/auth"
)

// ActorPublicLink is the actor recorded for unauthenticated public-link
// resolution paths.
const ActorPublicLink = "public-link"

// Resource types recorded in audit entries.
const (
	ResourceWorkflow   = "workflow"
	ResourceRun        = "run"
	ResourceSchedule   = "schedule"
	ResourceSecret     = "secret"
	ResourceArtifact   = "artifact"
	ResourceHumanInput = "human-input"
	ResourceSession    = "session"
)

// Record is one append-only audit entry. The gateway retains no reference
// to a record after enqueueing it.
type Record struct {
	// Action is a dotted verb, e.g. "secret.rotate" or "workflow.run".
	Action string `json:"action"`

	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	ResourceName string `json:"resourceName,omitempty"`

	// Actor is the principal ID, or "public-link" for unauthenticated
	// resolution.
	Actor string `json:"actor"`

	TenantID  string         `json:"tenantId"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Store is the backing audit store. Implementations are owned by backing
// services; the gateway only enqueues.
type Store interface {
	Write(ctx context.Context, rec *Record) error
}

// Emitter fans audit records out to the backing store asynchronously.
// A nil *Emitter is valid and drops all records, so callers never need to
// nil-check before emitting.
type Emitter struct {
	store Store
	log   *slog.Logger
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewEmitter creates an audit emitter over the given store.
func NewEmitter(store Store, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{store: store, log: log}
}

// Emit schedules an asynchronous write of the record. It returns before the
// write completes. Write failures are logged and swallowed.
//
// The write uses a context detached from the caller's cancellation so that
// request teardown cannot abort the audit write mid-flight.
func (e *Emitter) Emit(ctx context.Context, rec Record) {
	if e == nil || e.store == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Actor == "" {
		rec.Actor = ActorPublicLink
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Warn("audit emitter closed; dropping record", "action", rec.Action)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer e.wg.Done()
		if err := e.store.Write(detached, &rec); err != nil {
			e.log.Warn("audit write failed",
				"action", rec.Action,
				"resource_type", rec.ResourceType,
				"resource_id", rec.ResourceID,
				"error", err)
		}
	}()
}

// Close waits for all in-flight audit writes to complete. Subsequent Emit
// calls drop their records.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

// CanRead reports whether the caller may read audit entries: ADMIN role, or
// an API key with audit.read granted.
func CanRead(ac *auth.AuthContext) bool {
	if ac == nil {
		return false
	}
	if ac.HasRole(auth.RoleAdmin) {
		return true
	}
	return ac.IsAPIKey() && ac.Capabilities.Allows("audit", "read")
}
