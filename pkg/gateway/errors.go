// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import "errors"

// Common domain errors used across gateway subpackages.
// These errors should be checked using errors.Is().

var (
	// ErrNotFound indicates a requested resource (workflow, run, artifact,
	// schedule, secret, human input) was not found or is not visible to the
	// caller's tenant. Wrapping errors should say what was not found.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates the request carried no valid credential.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrPermissionDenied indicates the caller's capability matrix does not
	// allow the attempted action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSessionNotFound indicates an unknown or expired MCP session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPrincipalMismatch indicates a request referenced a session bound to
	// a different principal or tenant. The session must never be served.
	ErrPrincipalMismatch = errors.New("session belongs to a different principal")

	// ErrInvalidInput indicates tool arguments that fail schema validation
	// or carry out-of-range values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates an optional backing service was not
	// wired into the gateway. Rendered to MCP clients as a structured tool
	// error, never a crash.
	ErrServiceUnavailable = errors.New("service is not available")

	// ErrTaskTerminal indicates a write was attempted against a task that
	// already reached a terminal state. Terminal tasks never change.
	ErrTaskTerminal = errors.New("task is already terminal")

	// ErrTaskNotFound indicates an unknown or expired background task ID.
	ErrTaskNotFound = errors.New("task not found")
)
