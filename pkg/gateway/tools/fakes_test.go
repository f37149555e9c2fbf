// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/services"
)

// fakeScheduleService implements services.ScheduleService with function
// fields; unset methods return zero values.
type fakeScheduleService struct {
	listFn    func(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) ([]map[string]any, error)
	getFn     func(ctx context.Context, ac *auth.AuthContext, scheduleID string) (map[string]any, error)
	createFn  func(ctx context.Context, ac *auth.AuthContext, dto services.ScheduleDTO) (map[string]any, error)
	updateFn  func(ctx context.Context, ac *auth.AuthContext, scheduleID string, dto services.ScheduleDTO) (map[string]any, error)
	pauseFn   func(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
	resumeFn  func(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
	triggerFn func(ctx context.Context, ac *auth.AuthContext, scheduleID string) (string, error)
	deleteFn  func(ctx context.Context, ac *auth.AuthContext, scheduleID string) error
}

func (f *fakeScheduleService) List(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) ([]map[string]any, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ac, opts)
	}
	return nil, nil
}

func (f *fakeScheduleService) Get(ctx context.Context, ac *auth.AuthContext, scheduleID string) (map[string]any, error) {
	if f.getFn != nil {
		return f.getFn(ctx, ac, scheduleID)
	}
	return nil, nil
}

func (f *fakeScheduleService) Create(ctx context.Context, ac *auth.AuthContext, dto services.ScheduleDTO) (map[string]any, error) {
	if f.createFn != nil {
		return f.createFn(ctx, ac, dto)
	}
	return nil, nil
}

func (f *fakeScheduleService) Update(ctx context.Context, ac *auth.AuthContext, scheduleID string, dto services.ScheduleDTO) (map[string]any, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, ac, scheduleID, dto)
	}
	return nil, nil
}

func (f *fakeScheduleService) Pause(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	if f.pauseFn != nil {
		return f.pauseFn(ctx, ac, scheduleID)
	}
	return nil
}

func (f *fakeScheduleService) Resume(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	if f.resumeFn != nil {
		return f.resumeFn(ctx, ac, scheduleID)
	}
	return nil
}

func (f *fakeScheduleService) Trigger(ctx context.Context, ac *auth.AuthContext, scheduleID string) (string, error) {
	if f.triggerFn != nil {
		return f.triggerFn(ctx, ac, scheduleID)
	}
	return "", nil
}

func (f *fakeScheduleService) Delete(ctx context.Context, ac *auth.AuthContext, scheduleID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ac, scheduleID)
	}
	return nil
}

// fakeArtifactService implements services.ArtifactService.
type fakeArtifactService struct {
	listFn        func(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) (json.RawMessage, error)
	listRunFn     func(ctx context.Context, ac *auth.AuthContext, runID string) (json.RawMessage, error)
	downloadFn    func(ctx context.Context, ac *auth.AuthContext, artifactID string) (*services.ArtifactDownload, error)
	deleteCalled  []string
	deleteFailure error
}

func (f *fakeArtifactService) ListArtifacts(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) (json.RawMessage, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ac, opts)
	}
	return json.RawMessage(`[]`), nil
}

func (f *fakeArtifactService) ListRunArtifacts(ctx context.Context, ac *auth.AuthContext, runID string) (json.RawMessage, error) {
	if f.listRunFn != nil {
		return f.listRunFn(ctx, ac, runID)
	}
	return json.RawMessage(`[]`), nil
}

func (f *fakeArtifactService) DownloadArtifact(ctx context.Context, ac *auth.AuthContext, artifactID string) (*services.ArtifactDownload, error) {
	if f.downloadFn != nil {
		return f.downloadFn(ctx, ac, artifactID)
	}
	return &services.ArtifactDownload{}, nil
}

func (f *fakeArtifactService) DeleteArtifact(_ context.Context, _ *auth.AuthContext, artifactID string) error {
	f.deleteCalled = append(f.deleteCalled, artifactID)
	return f.deleteFailure
}

// fakeHumanInputService implements services.HumanInputService.
type fakeHumanInputService struct {
	listFn    func(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) ([]map[string]any, error)
	getFn     func(ctx context.Context, ac *auth.AuthContext, inputID string) (map[string]any, error)
	resolveFn func(ctx context.Context, ac *auth.AuthContext, inputID string, responseData map[string]any) (map[string]any, error)
}

func (f *fakeHumanInputService) List(ctx context.Context, ac *auth.AuthContext, opts services.ListOptions) ([]map[string]any, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ac, opts)
	}
	return nil, nil
}

func (f *fakeHumanInputService) Get(ctx context.Context, ac *auth.AuthContext, inputID string) (map[string]any, error) {
	if f.getFn != nil {
		return f.getFn(ctx, ac, inputID)
	}
	return nil, nil
}

func (f *fakeHumanInputService) Resolve(ctx context.Context, ac *auth.AuthContext, inputID string, responseData map[string]any) (map[string]any, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, ac, inputID, responseData)
	}
	return nil, nil
}

func (*fakeHumanInputService) HasPendingForRun(context.Context, string, string) (bool, error) {
	return false, nil
}

func memberAuth() *auth.AuthContext {
	return &auth.AuthContext{
		PrincipalID:   "user-1",
		TenantID:      "org-1",
		Authenticated: true,
		Roles:         []auth.Role{auth.RoleMember},
	}
}

func apiKeyAuth(caps auth.CapabilityMatrix) *auth.AuthContext {
	return &auth.AuthContext{
		PrincipalID:   "key-1",
		TenantID:      "org-1",
		Authenticated: true,
		Provider:      auth.ProviderAPIKey,
		Capabilities:  caps,
	}
}

func findTool(t *testing.T, sdkTools []mcpserver.ServerTool, name string) mcpserver.ServerTool {
	t.Helper()
	for _, st := range sdkTools {
		if st.Tool.Name == name {
			return st
		}
	}
	t.Fatalf("tool %q not in catalog", name)
	return mcpserver.ServerTool{}
}

func callTool(t *testing.T, st mcpserver.ServerTool, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = st.Tool.Name
	req.Params.Arguments = args
	result, err := st.Handler(context.Background(), req)
	require.NoError(t, err, "tool failures must be isError results, not handler errors")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return tc.Text
}
