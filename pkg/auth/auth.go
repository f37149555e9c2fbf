// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth provides authentication for the Studio MCP Gateway.
//
// Clients authenticate with an opaque bearer API key (recognizable by its
// "sk_live_" prefix). The authentication middleware resolves the key to an
// AuthContext carrying the caller's principal, tenant, roles and — for API
// keys — a capability matrix. The AuthContext is attached to the request
// context and is immutable from that point on.
package auth

import (
	"context"
	"strings"
)

// Role is a coarse-grained role held by a principal.
type Role string

// Roles known to the gateway.
const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ProviderAPIKey is the provider label for API-key principals.
const ProviderAPIKey = "api-key"

// KeyPrefix is the recognizable prefix of Studio API keys.
const KeyPrefix = "sk_live_"

// CapabilityMatrix declares what an API key may do: scope → action → allowed.
// Absence of a scope, or of an action within a scope, means denied.
type CapabilityMatrix map[string]map[string]bool

// Allows reports whether the matrix permits the given scope and action.
func (m CapabilityMatrix) Allows(scope, action string) bool {
	actions, ok := m[scope]
	if !ok {
		return false
	}
	return actions[action]
}

// AuthContext is the caller's identity on a request. It is created by the
// authentication middleware and never mutated downstream.
type AuthContext struct {
	// PrincipalID uniquely identifies the caller (user or API key subject).
	PrincipalID string

	// TenantID scopes every service call made on behalf of this caller.
	TenantID string

	// Roles held by the principal.
	Roles []Role

	// Authenticated is false only for public-link resolution paths.
	Authenticated bool

	// Provider labels how the caller authenticated (e.g. "api-key").
	Provider string

	// Capabilities is present only for API-key principals. A nil matrix
	// means the caller is not an API key and is unrestricted by the
	// gateway's permission gate; tenant scoping still applies.
	Capabilities CapabilityMatrix
}

// HasRole reports whether the principal holds the given role.
func (a *AuthContext) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAPIKey reports whether the caller authenticated with an API key.
func (a *AuthContext) IsAPIKey() bool {
	return a != nil && a.Provider == ProviderAPIKey
}

// HasBearerPrefix reports whether the credential looks like a Studio API key.
func HasBearerPrefix(token string) bool {
	return strings.HasPrefix(token, KeyPrefix)
}

type contextKey struct{}

// WithAuthContext returns a context carrying the given AuthContext.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext extracts the AuthContext from a request context.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(*AuthContext)
	return ac, ok && ac != nil
}
