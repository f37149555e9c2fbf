// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/studiomcp/gateway/pkg/gateway/session"
)

// sessionIDAdapter exposes the gateway's session.Manager through the
// mark3labs SDK's SessionIdManager interface.
//
// All session storage, TTL handling and cleanup belongs to session.Manager;
// the SDK only calls these three methods during MCP protocol flows:
//
//  1. Generate() when a client sends initialize without Mcp-Session-Id.
//  2. Validate() on every request carrying a session ID.
//  3. Terminate() on HTTP DELETE.
//
// Generate has no request context, so the session it registers is an
// unbound placeholder; the OnRegisterSession hook binds the caller identity
// in a second phase.
type sessionIDAdapter struct {
	manager *session.Manager
	log     *slog.Logger
}

func newSessionIDAdapter(manager *session.Manager, log *slog.Logger) *sessionIDAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &sessionIDAdapter{manager: manager, log: log}
}

// Generate creates a new session ID and registers an unbound placeholder.
// Session IDs are UUIDs, satisfying the MCP requirement of globally unique
// visible-ASCII identifiers.
func (a *sessionIDAdapter) Generate() string {
	ctx := context.Background()
	sessionID := uuid.New().String()

	if err := a.manager.AddPlaceholder(ctx, sessionID); err != nil {
		a.log.Error("failed to register session", "session_id", sessionID, "error", err)
		// One retry with a fresh ID; a UUID collision is the only in-process
		// cause, storage failure the only real one.
		sessionID = uuid.New().String()
		if err := a.manager.AddPlaceholder(ctx, sessionID); err != nil {
			a.log.Error("failed to register session on retry", "session_id", sessionID, "error", err)
			// Empty string tells the SDK not to send an Mcp-Session-Id
			// header; the client's next request fails validation cleanly.
			return ""
		}
	}
	a.log.Debug("generated MCP session", "session_id", sessionID)
	return sessionID
}

// Validate reports whether a session exists and is active. Identity checks
// are not done here: they belong to the session guard, which runs before
// the SDK and has the request context. The Get call extends the TTL.
func (a *sessionIDAdapter) Validate(sessionID string) (isTerminated bool, err error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	if _, err := a.manager.Get(context.Background(), sessionID); err != nil {
		a.log.Debug("session validation failed", "session_id", sessionID, "error", err)
		return false, fmt.Errorf("session not found")
	}
	return false, nil
}

// Terminate destroys the session. Called by the SDK on HTTP DELETE.
// Destroying an unknown session succeeds: the client may be deleting an
// already-expired session.
func (a *sessionIDAdapter) Terminate(sessionID string) (isNotAllowed bool, err error) {
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	if err := a.manager.Destroy(context.Background(), sessionID); err != nil {
		return false, err
	}
	a.log.Info("session terminated", "session_id", sessionID)
	return false, nil
}
