// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/gateway"
)

func newRedisTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storage := NewRedisStorageWithClient(client, "test:sessions:", time.Minute)
	t.Cleanup(func() { _ = storage.Close() })
	return storage, mr
}

func TestRedisStorageRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage, _ := newRedisTestStorage(t)

	sess := New("s-1")
	require.NoError(t, sess.Bind("user-1", "org-1"))
	sess.SetMetadata("client", "agent-sdk")
	require.NoError(t, storage.Store(ctx, sess))

	loaded, err := storage.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", loaded.ID())
	assert.Equal(t, "user-1", loaded.PrincipalID())
	assert.Equal(t, "org-1", loaded.TenantID())
	assert.Equal(t, "agent-sdk", loaded.GetMetadata()["client"])
	assert.True(t, loaded.Matches("user-1", "org-1"))
}

func TestRedisStorageLoadMissing(t *testing.T) {
	t.Parallel()
	storage, _ := newRedisTestStorage(t)

	_, err := storage.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, gateway.ErrSessionNotFound)
}

func TestRedisStorageDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage, _ := newRedisTestStorage(t)

	require.NoError(t, storage.Store(ctx, New("s-1")))
	require.NoError(t, storage.Delete(ctx, "s-1"))

	_, err := storage.Load(ctx, "s-1")
	assert.ErrorIs(t, err, gateway.ErrSessionNotFound)

	// Deleting an absent session is not an error.
	assert.NoError(t, storage.Delete(ctx, "s-1"))
}

func TestRedisStorageNativeExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage, mr := newRedisTestStorage(t)

	require.NoError(t, storage.Store(ctx, New("s-1")))

	mr.FastForward(2 * time.Minute)

	_, err := storage.Load(ctx, "s-1")
	assert.ErrorIs(t, err, gateway.ErrSessionNotFound)
}

func TestManagerOverRedisStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage, _ := newRedisTestStorage(t)

	m := NewManager(storage, time.Hour, nil)
	// Storage is owned by the test cleanup; stop only the manager's worker.
	t.Cleanup(func() { _ = m.Stop() })

	require.NoError(t, m.AddPlaceholder(ctx, "s-1"))
	require.NoError(t, m.Bind(ctx, "s-1", "user-1", "org-1"))

	// The binding must survive serialization through Redis.
	_, err := m.Lookup(ctx, "s-1", "user-2", "org-1")
	assert.ErrorIs(t, err, gateway.ErrPrincipalMismatch)

	sess, err := m.Lookup(ctx, "s-1", "user-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", sess.TenantID())
}
