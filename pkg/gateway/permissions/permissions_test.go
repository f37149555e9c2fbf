// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway"
)

func TestCheckNoMatrixIsAllowed(t *testing.T) {
	t.Parallel()

	// Non-API-key principals carry no matrix and are unrestricted.
	assert.NoError(t, Check(&auth.AuthContext{PrincipalID: "user-1"}, "secrets.create"))
	assert.NoError(t, Check(nil, "secrets.create"))
}

func TestCheckEmptyPathIsAlwaysAllowed(t *testing.T) {
	t.Parallel()

	ac := &auth.AuthContext{Capabilities: auth.CapabilityMatrix{}}
	assert.NoError(t, Check(ac, ""))
}

func TestCheckMissingScopeIsDenied(t *testing.T) {
	t.Parallel()

	ac := &auth.AuthContext{Capabilities: auth.CapabilityMatrix{
		"workflows": {"list": true},
	}}
	err := Check(ac, "secrets.create")
	require.Error(t, err)
	assert.True(t, IsDenied(err))
}

func TestCheckFalseOrMissingActionIsDenied(t *testing.T) {
	t.Parallel()

	ac := &auth.AuthContext{Capabilities: auth.CapabilityMatrix{
		"schedules": {"create": false, "list": true},
	}}

	assert.True(t, IsDenied(Check(ac, "schedules.create")))
	assert.True(t, IsDenied(Check(ac, "schedules.delete")))
	assert.NoError(t, Check(ac, "schedules.list"))
}

func TestDeniedErrorCarriesLiteralPath(t *testing.T) {
	t.Parallel()

	ac := &auth.AuthContext{Capabilities: auth.CapabilityMatrix{}}
	err := Check(ac, "schedules.create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedules.create")
	assert.Equal(t, "Permission denied: API key lacks 'schedules.create' permission.", err.Error())
}

func TestSplit(t *testing.T) {
	t.Parallel()

	scope, action, err := Split("runs.cancel")
	require.NoError(t, err)
	assert.Equal(t, "runs", scope)
	assert.Equal(t, "cancel", action)

	for _, malformed := range []string{"runs", ".cancel", "runs.", "."} {
		_, _, err := Split(malformed)
		assert.ErrorIs(t, err, gateway.ErrInvalidInput, "path %q", malformed)
	}
}
