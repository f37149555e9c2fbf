// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/studiomcp/gateway/pkg/gateway"
	"github.com/studiomcp/gateway/pkg/gateway/session"
)

// headerSessionID is the MCP streamable HTTP session header.
const headerSessionID = "Mcp-Session-Id"

// maxInitializeBody bounds how much of a POST body the guard reads to
// classify it. Initialize requests are tiny; anything larger is a
// continuation and must carry a session ID anyway.
const maxInitializeBody = 1 << 20

// sessionGuard enforces the transport-level session rules before a request
// reaches the MCP SDK:
//
//   - POST without a session ID must carry an initialize body, else 400.
//   - A session ID referencing an unknown session gets 404.
//   - A session bound to a different principal or tenant gets 403 and the
//     request never reaches the session's handler (hijack prevention).
//   - A GET stream destroys its session when the stream closes, so an
//     abruptly disconnected client frees its session within one teardown.
//
// Authentication runs before the guard; an unauthenticated request never
// gets here.
type sessionGuard struct {
	manager *session.Manager
	log     *slog.Logger
}

func newSessionGuard(manager *session.Manager, log *slog.Logger) *sessionGuard {
	if log == nil {
		log = slog.Default()
	}
	return &sessionGuard{manager: manager, log: log}
}

// Middleware wraps the streamable HTTP handler with session enforcement.
func (g *sessionGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(headerSessionID)

		switch r.Method {
		case http.MethodPost:
			if sessionID == "" {
				if !g.requireInitialize(w, r) {
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if !g.authorizeSession(w, r, sessionID) {
				return
			}
			next.ServeHTTP(w, r)

		case http.MethodGet:
			if sessionID == "" {
				writeGuardError(w, http.StatusBadRequest, "Missing session ID")
				return
			}
			if !g.authorizeSession(w, r, sessionID) {
				return
			}
			next.ServeHTTP(w, r)
			// The handler returns when the push stream ends; free the
			// session so a dead client does not hold it until TTL expiry.
			if err := g.manager.Destroy(r.Context(), sessionID); err != nil {
				g.log.Warn("failed to destroy session after stream close",
					"session_id", sessionID, "error", err)
			}

		case http.MethodDelete:
			if sessionID == "" {
				writeGuardError(w, http.StatusBadRequest, "Missing session ID")
				return
			}
			if !g.authorizeSession(w, r, sessionID) {
				return
			}
			next.ServeHTTP(w, r)

		default:
			writeGuardError(w, http.StatusBadRequest, "Unsupported method")
		}
	})
}

// requireInitialize classifies a sessionless POST: only an MCP initialize
// request (possibly inside a one-element batch) may proceed. The body is
// restored for the downstream handler.
func (g *sessionGuard) requireInitialize(w http.ResponseWriter, r *http.Request) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInitializeBody))
	if err != nil {
		writeGuardError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	if !isInitializeBody(body) {
		writeGuardError(w, http.StatusBadRequest, "Missing session ID")
		return false
	}
	return true
}

// authorizeSession resolves the session for the authenticated caller.
// Unknown sessions get 404; sessions bound to a different identity get 403.
func (g *sessionGuard) authorizeSession(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	ac, ok := authFromRequest(r)
	if !ok {
		writeGuardError(w, http.StatusUnauthorized, "Unauthenticated")
		return false
	}

	_, err := g.manager.Lookup(r.Context(), sessionID, ac.PrincipalID, ac.TenantID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, gateway.ErrPrincipalMismatch):
		writeGuardError(w, http.StatusForbidden, "Session belongs to a different principal")
		return false
	case errors.Is(err, gateway.ErrSessionNotFound):
		writeGuardError(w, http.StatusNotFound, "Session not found")
		return false
	default:
		g.log.Error("session lookup failed", "session_id", sessionID, "error", err)
		writeGuardError(w, http.StatusInternalServerError, "Session lookup failed")
		return false
	}
}

// isInitializeBody reports whether the JSON-RPC payload is an initialize
// request, either a single message or a batch containing one.
func isInitializeBody(body []byte) bool {
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		found := false
		parsed.ForEach(func(_, msg gjson.Result) bool {
			if msg.Get("method").String() == "initialize" {
				found = true
				return false
			}
			return true
		})
		return found
	}
	return parsed.Get("method").String() == "initialize"
}

func writeGuardError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
