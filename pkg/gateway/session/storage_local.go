// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// LocalStorage implements Storage with an in-memory sync.Map. This is the
// default backend for single-instance deployments.
type LocalStorage struct {
	sessions sync.Map
}

// NewLocalStorage creates a local in-memory storage backend.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Store saves a session. Sessions are stored by reference; no serialization.
func (s *LocalStorage) Store(_ context.Context, sess *Session) error {
	if sess == nil {
		return fmt.Errorf("cannot store nil session")
	}
	if sess.ID() == "" {
		return fmt.Errorf("cannot store session with empty ID")
	}
	s.sessions.Store(sess.ID(), sess)
	return nil
}

// Load retrieves a session.
func (s *LocalStorage) Load(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("cannot load session with empty ID")
	}
	val, ok := s.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrSessionNotFound, id)
	}
	sess, ok := val.(*Session)
	if !ok {
		return nil, fmt.Errorf("invalid session type in storage")
	}
	return sess, nil
}

// Delete removes a session.
func (s *LocalStorage) Delete(_ context.Context, id string) error {
	s.sessions.Delete(id)
	return nil
}

// DeleteExpired removes sessions not updated since the given time.
func (s *LocalStorage) DeleteExpired(ctx context.Context, before time.Time) error {
	var toDelete []string
	s.sessions.Range(func(_, val any) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if sess, ok := val.(*Session); ok && sess.UpdatedAt().Before(before) {
			toDelete = append(toDelete, sess.ID())
		}
		return true
	})
	for _, id := range toDelete {
		s.sessions.Delete(id)
	}
	return nil
}

// Close clears all sessions.
func (s *LocalStorage) Close() error {
	s.sessions.Range(func(key, _ any) bool {
		s.sessions.Delete(key)
		return true
	})
	return nil
}

// Count returns the number of stored sessions. Helper for tests and
// metrics; not part of the Storage interface.
func (s *LocalStorage) Count() int {
	count := 0
	s.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
