// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session provides MCP session management with TTL cleanup and
// pluggable storage backends.
//
// A session is created during the MCP initialize handshake in two phases:
// the transport generates an ID and stores an unbound placeholder, then the
// registration hook binds the caller's principal and tenant once the request
// context is available. After binding, the identity is immutable for the
// session's lifetime and every subsequent request is checked against it.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Session is one MCP client's session. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	id          string
	principalID string
	tenantID    string
	createdAt   time.Time
	updatedAt   time.Time
	metadata    map[string]string
}

// New creates an unbound session with the given ID.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		metadata:  make(map[string]string),
	}
}

// ID returns the opaque session ID.
func (s *Session) ID() string { return s.id }

// PrincipalID returns the bound principal, or "" before binding.
func (s *Session) PrincipalID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principalID
}

// TenantID returns the bound tenant, or "" before binding.
func (s *Session) TenantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last activity time.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Touch updates the last activity time, extending the session's TTL.
func (s *Session) Touch() {
	s.mu.Lock()
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// Bound reports whether the session has been bound to a principal.
func (s *Session) Bound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principalID != ""
}

// Bind attaches the caller identity to the session. Binding happens exactly
// once; a second call with any identity fails.
func (s *Session) Bind(principalID, tenantID string) error {
	if principalID == "" || tenantID == "" {
		return fmt.Errorf("principal and tenant are required to bind a session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principalID != "" {
		return fmt.Errorf("session %s is already bound", s.id)
	}
	s.principalID = principalID
	s.tenantID = tenantID
	s.updatedAt = time.Now().UTC()
	return nil
}

// Matches reports whether the session is bound to the given identity.
// An unbound session matches nothing.
func (s *Session) Matches(principalID, tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principalID != "" && s.principalID == principalID && s.tenantID == tenantID
}

// GetMetadata returns a copy of the session metadata.
func (s *Session) GetMetadata() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

// SetMetadata stores one metadata key.
func (s *Session) SetMetadata(key, value string) {
	s.mu.Lock()
	s.metadata[key] = value
	s.mu.Unlock()
}

// record is the serialized session shape used by remote storage backends.
type record struct {
	ID          string            `json:"id"`
	PrincipalID string            `json:"principalId,omitempty"`
	TenantID    string            `json:"tenantId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON serializes the session for remote storage.
func (s *Session) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(record{
		ID:          s.id,
		PrincipalID: s.principalID,
		TenantID:    s.tenantID,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		Metadata:    s.metadata,
	})
}

// UnmarshalJSON restores a session from its stored form.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = rec.ID
	s.principalID = rec.PrincipalID
	s.tenantID = rec.TenantID
	s.createdAt = rec.CreatedAt
	s.updatedAt = rec.UpdatedAt
	s.metadata = rec.Metadata
	if s.metadata == nil {
		s.metadata = make(map[string]string)
	}
	return nil
}
