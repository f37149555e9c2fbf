// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
)

type recordingStore struct {
	mu      sync.Mutex
	records []*Record
	err     error
}

func (s *recordingStore) Write(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingStore) all() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...)
}

func TestEmitWritesAsynchronously(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	e := NewEmitter(store, nil)

	e.Emit(context.Background(), Record{
		Action:       "secret.rotate",
		ResourceType: ResourceSecret,
		ResourceID:   "sec-1",
		Actor:        "user-1",
		TenantID:     "org-1",
	})
	e.Close()

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, "secret.rotate", records[0].Action)
	assert.Equal(t, "user-1", records[0].Actor)
	assert.False(t, records[0].Timestamp.IsZero(), "timestamp should be defaulted")
}

func TestEmitSwallowsWriteFailures(t *testing.T) {
	t.Parallel()

	store := &recordingStore{err: errors.New("audit store down")}
	e := NewEmitter(store, nil)

	// Must not panic and must not propagate; the triggering operation sees
	// nothing.
	e.Emit(context.Background(), Record{Action: "workflow.delete"})
	e.Close()
	assert.Empty(t, store.all())
}

func TestEmitDefaultsActorToPublicLink(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	e := NewEmitter(store, nil)
	e.Emit(context.Background(), Record{Action: "human-input.resolve"})
	e.Close()

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, ActorPublicLink, records[0].Actor)
}

func TestEmitSurvivesCancelledRequestContext(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	e := NewEmitter(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.Emit(ctx, Record{Action: "run.cancel"})
	e.Close()

	assert.Len(t, store.all(), 1)
}

func TestEmitAfterCloseDropsRecord(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	e := NewEmitter(store, nil)
	e.Close()

	e.Emit(context.Background(), Record{Action: "workflow.create"})
	assert.Empty(t, store.all())
}

func TestNilEmitterIsSafe(t *testing.T) {
	t.Parallel()

	var e *Emitter
	e.Emit(context.Background(), Record{Action: "noop"})
	e.Close()
}

func TestCanRead(t *testing.T) {
	t.Parallel()

	assert.False(t, CanRead(nil))

	admin := &auth.AuthContext{Roles: []auth.Role{auth.RoleAdmin}}
	assert.True(t, CanRead(admin))

	keyWithAudit := &auth.AuthContext{
		Provider:     auth.ProviderAPIKey,
		Capabilities: auth.CapabilityMatrix{"audit": {"read": true}},
	}
	assert.True(t, CanRead(keyWithAudit))

	keyWithoutAudit := &auth.AuthContext{
		Provider:     auth.ProviderAPIKey,
		Capabilities: auth.CapabilityMatrix{"audit": {"read": false}},
	}
	assert.False(t, CanRead(keyWithoutAudit))

	member := &auth.AuthContext{Roles: []auth.Role{auth.RoleMember}}
	assert.False(t, CanRead(member))
}
