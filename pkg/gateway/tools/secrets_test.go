// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

// fakeSecretService implements services.SecretService.
type fakeSecretService struct {
	listFn   func(ctx context.Context, ac *auth.AuthContext) ([]services.SecretMeta, error)
	createFn func(ctx context.Context, ac *auth.AuthContext, name, value, description string) (*services.SecretMeta, error)
	rotateFn func(ctx context.Context, ac *auth.AuthContext, secretID, value string) (*services.SecretMeta, error)
	updateFn func(ctx context.Context, ac *auth.AuthContext, secretID string, patch map[string]any) (*services.SecretMeta, error)
	deleteFn func(ctx context.Context, ac *auth.AuthContext, secretID string) error
}

func (f *fakeSecretService) List(ctx context.Context, ac *auth.AuthContext) ([]services.SecretMeta, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ac)
	}
	return nil, nil
}

func (f *fakeSecretService) Create(ctx context.Context, ac *auth.AuthContext, name, value, description string) (*services.SecretMeta, error) {
	if f.createFn != nil {
		return f.createFn(ctx, ac, name, value, description)
	}
	return &services.SecretMeta{}, nil
}

func (f *fakeSecretService) Rotate(ctx context.Context, ac *auth.AuthContext, secretID, value string) (*services.SecretMeta, error) {
	if f.rotateFn != nil {
		return f.rotateFn(ctx, ac, secretID, value)
	}
	return &services.SecretMeta{}, nil
}

func (f *fakeSecretService) Update(ctx context.Context, ac *auth.AuthContext, secretID string, patch map[string]any) (*services.SecretMeta, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, ac, secretID, patch)
	}
	return &services.SecretMeta{}, nil
}

func (f *fakeSecretService) Delete(ctx context.Context, ac *auth.AuthContext, secretID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ac, secretID)
	}
	return nil
}

func secretDeps(svc services.SecretService) *Deps {
	return &Deps{Services: &services.Deps{Secrets: svc}}
}

func TestCreateSecretReturnsMetadataOnly(t *testing.T) {
	t.Parallel()

	var gotValue string
	svc := &fakeSecretService{
		createFn: func(_ context.Context, _ *auth.AuthContext, name, value, _ string) (*services.SecretMeta, error) {
			gotValue = value
			return &services.SecretMeta{ID: "sec-1", Name: name, UpdatedAt: time.Now()}, nil
		},
	}

	sdkTools, err := ForSession(memberAuth(), secretDeps(svc), nil)
	require.NoError(t, err)

	result := callTool(t, findTool(t, sdkTools, "create_secret"), map[string]any{
		"name":  "db-password",
		"value": "hunter2",
	})
	assert.False(t, result.IsError)
	assert.Equal(t, "hunter2", gotValue, "value reaches the service in transit")

	// The response is metadata only: the plaintext must not round-trip back
	// to the MCP client.
	assert.NotContains(t, resultText(t, result), "hunter2")
	assert.Contains(t, resultText(t, result), "sec-1")
}

func TestRotateSecretKeepsIdentity(t *testing.T) {
	t.Parallel()

	svc := &fakeSecretService{
		rotateFn: func(_ context.Context, _ *auth.AuthContext, secretID, value string) (*services.SecretMeta, error) {
			assert.Equal(t, "sec-1", secretID)
			assert.Equal(t, "new-value", value)
			return &services.SecretMeta{ID: secretID, Name: "db-password"}, nil
		},
	}

	inv := &Invocation{
		Auth: memberAuth(),
		Deps: secretDeps(svc),
		Args: map[string]any{"secretId": "sec-1", "value": "new-value"},
	}
	result, err := handleRotateSecret(context.Background(), inv)
	require.NoError(t, err)

	meta, ok := result.(*services.SecretMeta)
	require.True(t, ok)
	assert.Equal(t, "sec-1", meta.ID)
}

func TestUpdateSecretBuildsSparsePatch(t *testing.T) {
	t.Parallel()

	var gotPatch map[string]any
	svc := &fakeSecretService{
		updateFn: func(_ context.Context, _ *auth.AuthContext, _ string, patch map[string]any) (*services.SecretMeta, error) {
			gotPatch = patch
			return &services.SecretMeta{ID: "sec-1"}, nil
		},
	}

	inv := &Invocation{
		Auth: memberAuth(),
		Deps: secretDeps(svc),
		Args: map[string]any{"secretId": "sec-1", "description": "prod db"},
	}
	_, err := handleUpdateSecret(context.Background(), inv)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"description": "prod db"}, gotPatch)
}
