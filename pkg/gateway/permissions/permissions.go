// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package permissions implements the gateway's permission gate.
//
// Tools declare a dotted permission path ("scope.action"). The gate walks
// the caller's capability matrix and short-circuits denials before any
// backing service is reached.
package permissions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
)

// DeniedError is returned when a capability matrix does not allow a
// permission path. Its message carries the literal dotted path; MCP clients
// rely on that text to explain the denial to end users.
type DeniedError struct {
	Path string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("Permission denied: API key lacks '%s' permission.", e.Path)
}

// Unwrap lets errors.Is match gateway.ErrPermissionDenied.
func (*DeniedError) Unwrap() error {
	return gateway.ErrPermissionDenied
}

// Check evaluates a dotted permission path against the caller's capability
// matrix.
//
//  1. A nil matrix means the caller is not an API key: allowed.
//  2. Missing scope: denied.
//  3. Missing or false action: denied.
//
// An empty path means the tool requires no permission and is always allowed.
func Check(ac *auth.AuthContext, path string) error {
	if path == "" {
		return nil
	}

	scope, action, err := Split(path)
	if err != nil {
		return err
	}

	if ac == nil || ac.Capabilities == nil {
		return nil
	}
	if !ac.Capabilities.Allows(scope, action) {
		return &DeniedError{Path: path}
	}
	return nil
}

// Split parses a dotted permission path into scope and action.
func Split(path string) (scope, action string, err error) {
	scope, action, found := strings.Cut(path, ".")
	if !found || scope == "" || action == "" {
		return "", "", fmt.Errorf("%w: malformed permission path %q", gateway.ErrInvalidInput, path)
	}
	return scope, action, nil
}

// IsDenied reports whether err is a permission denial.
func IsDenied(err error) bool {
	return errors.Is(err, gateway.ErrPermissionDenied)
}
