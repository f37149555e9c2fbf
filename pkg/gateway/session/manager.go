// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// DefaultTTL is the default session time-to-live. Sessions inactive for
// this duration are cleaned up.
const DefaultTTL = 30 * time.Minute

// Manager owns the set of active MCP sessions. All mutation goes through
// its entry points; concurrent reads are permitted. The storage backend is
// pluggable (local by default, Redis for a shared registry).
type Manager struct {
	storage Storage
	ttl     time.Duration
	log     *slog.Logger

	stopCh chan struct{}
	once   sync.Once
}

// NewManager creates a session manager and starts its TTL cleanup worker.
// A nil storage defaults to LocalStorage.
func NewManager(storage Storage, ttl time.Duration, log *slog.Logger) *Manager {
	if storage == nil {
		storage = NewLocalStorage()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Manager{
		storage: storage,
		ttl:     ttl,
		log:     log,
		stopCh:  make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.storage.DeleteExpired(ctx, time.Now().Add(-m.ttl)); err != nil {
				m.log.Warn("session cleanup failed", "error", err)
			}
			cancel()
		case <-m.stopCh:
			return
		}
	}
}

// AddPlaceholder registers an unbound session with the given ID. Called by
// the transport's Generate step during initialize, before the request
// context (and so the caller identity) is available.
func (m *Manager) AddPlaceholder(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := m.storage.Load(ctx, id); err == nil {
		return fmt.Errorf("session ID %q already exists", id)
	}
	return m.storage.Store(ctx, New(id))
}

// Bind attaches the caller identity to a placeholder session. Second phase
// of session creation; the identity is immutable afterwards.
func (m *Manager) Bind(ctx context.Context, id, principalID, tenantID string) error {
	sess, err := m.storage.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := sess.Bind(principalID, tenantID); err != nil {
		return err
	}
	// Write back so remote backends see the binding.
	return m.storage.Store(ctx, sess)
}

// Get returns the session and extends its TTL.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := m.storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Touch()
	if err := m.storage.Store(ctx, sess); err != nil {
		m.log.Warn("failed to persist session activity", "session_id", id, "error", err)
	}
	return sess, nil
}

// Lookup resolves a session for a caller, enforcing identity binding.
// A session bound to a different principal or tenant is never served:
// the caller gets gateway.ErrPrincipalMismatch and the session survives
// untouched (hijack prevention).
func (m *Manager) Lookup(ctx context.Context, id, principalID, tenantID string) (*Session, error) {
	sess, err := m.storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Unbound placeholders carry no identity yet; initialize is still in
	// flight, so there is nothing to enforce.
	if sess.Bound() && !sess.Matches(principalID, tenantID) {
		m.log.Warn("session identity mismatch",
			"session_id", id,
			"request_principal", principalID,
			"request_tenant", tenantID)
		return nil, gateway.ErrPrincipalMismatch
	}
	sess.Touch()
	if err := m.storage.Store(ctx, sess); err != nil {
		m.log.Warn("failed to persist session activity", "session_id", id, "error", err)
	}
	return sess, nil
}

// Destroy removes a session. Idempotent: destroying an absent session is
// not an error. Invoked on DELETE, on stream close, and on transport
// failure.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if err := m.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to destroy session %s: %w", id, err)
	}
	m.log.Debug("session destroyed", "session_id", id)
	return nil
}

// Exists reports whether the session is present.
func (m *Manager) Exists(ctx context.Context, id string) bool {
	_, err := m.storage.Load(ctx, id)
	return err == nil
}

// IsNotFound reports whether err is a missing-session error.
func IsNotFound(err error) bool {
	return errors.Is(err, gateway.ErrSessionNotFound)
}

// Stop terminates the cleanup worker and closes the storage backend.
func (m *Manager) Stop() error {
	m.once.Do(func() { close(m.stopCh) })
	return m.storage.Close()
}
