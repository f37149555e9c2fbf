// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studiomcp/gateway/pkg/gateway"
)

// KeyEntry is one API key definition in a key file.
type KeyEntry struct {
	Key          string                     `yaml:"key"`
	PrincipalID  string                     `yaml:"principal_id"`
	TenantID     string                     `yaml:"tenant_id"`
	Roles        []Role                     `yaml:"roles"`
	Capabilities map[string]map[string]bool `yaml:"capabilities"`
}

type keyFile struct {
	Keys []KeyEntry `yaml:"keys"`
}

// FileKeyStore is a KeyValidator backed by a static YAML key file. It is
// intended for development and single-tenant deployments; production
// deployments resolve keys through the identity provider.
type FileKeyStore struct {
	keys map[string]*AuthContext
}

// NewFileKeyStore loads API keys from a YAML file.
func NewFileKeyStore(path string) (*FileKeyStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParseKeyFile(data)
}

// ParseKeyFile builds a FileKeyStore from YAML key file contents.
func ParseKeyFile(data []byte) (*FileKeyStore, error) {
	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}

	store := &FileKeyStore{keys: make(map[string]*AuthContext, len(kf.Keys))}
	for i, entry := range kf.Keys {
		if entry.Key == "" || entry.PrincipalID == "" || entry.TenantID == "" {
			return nil, fmt.Errorf("key entry %d: key, principal_id and tenant_id are required", i)
		}
		roles := entry.Roles
		if len(roles) == 0 {
			roles = []Role{RoleMember}
		}
		store.keys[entry.Key] = &AuthContext{
			PrincipalID:   entry.PrincipalID,
			TenantID:      entry.TenantID,
			Roles:         roles,
			Authenticated: true,
			Provider:      ProviderAPIKey,
			Capabilities:  entry.Capabilities,
		}
	}
	return store, nil
}

// ValidateKey implements KeyValidator.
func (s *FileKeyStore) ValidateKey(_ context.Context, key string) (*AuthContext, error) {
	ac, ok := s.keys[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown API key", gateway.ErrUnauthenticated)
	}
	// Copy so downstream code can never mutate the store's entry.
	out := *ac
	return &out, nil
}
