// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"time"
)

// Storage is the minimal interface for session storage backends. It is
// designed to support both local in-memory storage and distributed backends
// like Redis, so a multi-instance deployment can move session metadata
// off-process without changing any other component.
type Storage interface {
	// Store creates or updates a session. Existing entries are overwritten.
	Store(ctx context.Context, sess *Session) error

	// Load retrieves a session by ID. Fails with gateway.ErrSessionNotFound
	// if absent. Load does not touch the session; callers decide whether
	// activity should extend the TTL.
	Load(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions not updated since the given time.
	// Backends with native expiry may make this a no-op.
	DeleteExpired(ctx context.Context, before time.Time) error

	// Close releases backend resources.
	Close() error
}
